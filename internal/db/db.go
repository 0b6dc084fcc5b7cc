package db

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jfrchan18/rag-chatbot/internal/config"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func DSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
}

// Open connects to postgres, retrying the initial ping up to
// cfg.ConnectRetries times with cfg.ConnectDelayMs between attempts.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrConnection, err)
	}
	if err := pingWithRetry(ctx, db, cfg.ConnectRetries, time.Duration(cfg.ConnectDelayMs)*time.Millisecond); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func pingWithRetry(ctx context.Context, p pinger, attempts int, delay time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	logger := logutil.GetLogger(ctx)
	attempt := 0
	operation := func() error {
		attempt++
		err := p.PingContext(ctx)
		if err != nil {
			logger.Warn("db connection failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("%w: after %d attempts: %v", appErr.ErrConnection, attempt, err)
	}
	logger.Info("connected to postgres", zap.Int("attempts", attempt))
	return nil
}

// ApplySchema renders every embedded migration with the embedding dimension
// and executes it statement by statement. Every statement is idempotent.
func ApplySchema(ctx context.Context, db *sql.DB, dimension int) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	for _, file := range files {
		queries, err := renderMigration(file, dimension)
		if err != nil {
			return err
		}
		for _, q := range queries {
			if _, err := db.ExecContext(ctx, q); err != nil {
				if strings.Contains(err.Error(), "already exists") {
					continue
				}
				return fmt.Errorf("%w: execute query in %s: %v", appErr.ErrStorage, file, err)
			}
		}
	}
	logutil.GetLogger(ctx).Info("schema ensured", zap.Int("dimension", dimension))
	return nil
}

func renderMigration(file string, dimension int) ([]string, error) {
	content, err := fs.ReadFile(migrationsFS, "migrations/"+file)
	if err != nil {
		return nil, err
	}
	tpl, err := template.New(file).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, struct{ Dimension int }{Dimension: dimension}); err != nil {
		return nil, fmt.Errorf("render %s: %w", file, err)
	}
	var queries []string
	for _, q := range strings.Split(buf.String(), ";") {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// VectorDimension returns the declared width of chunks.embedding. pgvector
// stores the dimension in atttypmod.
func VectorDimension(ctx context.Context, db *sql.DB) (int, error) {
	const query = `
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'
	`
	var dim int
	if err := db.QueryRowContext(ctx, query).Scan(&dim); err != nil {
		return 0, fmt.Errorf("%w: read vector dimension: %v", appErr.ErrStorage, err)
	}
	return dim, nil
}

// EnsureDimension fails when the stored column width differs from the
// configured embedding model.
func EnsureDimension(ctx context.Context, db *sql.DB, want int) error {
	got, err := VectorDimension(ctx, db)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: chunks.embedding is vector(%d) but embedding model produces %d", appErr.ErrDimension, got, want)
	}
	return nil
}
