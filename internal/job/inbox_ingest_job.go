package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jfrchan18/rag-chatbot/internal/extract"
	"github.com/jfrchan18/rag-chatbot/internal/service"
)

const (
	inboxDoneDir   = "done"
	inboxFailedDir = "failed"
)

type FileIngester interface {
	IngestFile(ctx context.Context, path string) (*service.IngestResult, error)
}

// InboxIngestJob ingests every supported file dropped into dir and moves it
// to dir/done or dir/failed afterwards. A failed file gets a sibling
// "<name>.error" holding the failure message.
type InboxIngestJob struct {
	dir      string
	ingester FileIngester
}

func NewInboxIngestJob(dir string, ingester FileIngester) *InboxIngestJob {
	return &InboxIngestJob{dir: dir, ingester: ingester}
}

func (j *InboxIngestJob) Name() string {
	return "inbox_ingest"
}

func (j *InboxIngestJob) Run(ctx context.Context) error {
	if j.dir == "" || j.ingester == nil {
		return nil
	}
	for _, sub := range []string{inboxDoneDir, inboxFailedDir} {
		if err := os.MkdirAll(filepath.Join(j.dir, sub), 0o755); err != nil {
			return fmt.Errorf("prepare inbox: %w", err)
		}
	}
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("inbox", j.dir))
	var failed int
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || !extract.Supported(name) {
			continue
		}
		path := filepath.Join(j.dir, name)
		res, err := j.ingester.IngestFile(ctx, path)
		if err != nil {
			failed++
			logger.Error("inbox file ingest failed", zap.String("file", name), zap.Error(err))
			if mvErr := j.moveTo(path, inboxFailedDir); mvErr != nil {
				return mvErr
			}
			_ = os.WriteFile(filepath.Join(j.dir, inboxFailedDir, name+".error"), []byte(err.Error()+"\n"), 0o644)
			continue
		}
		logger.Info("inbox file ingested",
			zap.String("file", name),
			zap.Int64("doc_id", res.DocID),
			zap.Int("chunks", res.ChunksCreated),
		)
		if err := j.moveTo(path, inboxDoneDir); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d inbox files failed", failed)
	}
	return nil
}

func (j *InboxIngestJob) moveTo(path, sub string) error {
	dst := filepath.Join(j.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", filepath.Base(path), sub, err)
	}
	return nil
}
