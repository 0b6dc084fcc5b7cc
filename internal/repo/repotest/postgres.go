package repotest

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"

	"github.com/jfrchan18/rag-chatbot/internal/config"
	"github.com/jfrchan18/rag-chatbot/internal/db"
)

// TestDimension is the vector width used by the postgres integration tests.
const TestDimension = 3

// OpenTestDB connects to the postgres named by TEST_DB_HOST, recreates the
// schema with TestDimension and returns the handle. The test is skipped when
// TEST_DB_HOST is unset.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	port := 5432
	if v, err := strconv.Atoi(os.Getenv("TEST_DB_PORT")); err == nil {
		port = v
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, config.DatabaseConfig{
		Host:           host,
		Port:           port,
		User:           envOr("TEST_DB_USER", "rag"),
		Password:       envOr("TEST_DB_PASSWORD", "ragpass"),
		DBName:         envOr("TEST_DB_NAME", "ragdb_test"),
		SSLMode:        "disable",
		ConnectRetries: 1,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, table := range []string{"chunks", "documents", "chat_history"} {
		if _, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			t.Fatalf("drop %s: %v", table, err)
		}
	}
	if err := db.ApplySchema(ctx, conn, TestDimension); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
