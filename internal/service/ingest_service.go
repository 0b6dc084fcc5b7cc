package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jfrchan18/rag-chatbot/internal/ai"
	"github.com/jfrchan18/rag-chatbot/internal/config"
	"github.com/jfrchan18/rag-chatbot/internal/extract"
	"github.com/jfrchan18/rag-chatbot/internal/filestore"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
	"github.com/jfrchan18/rag-chatbot/internal/repo"
)

type IngestResult struct {
	DocID         int64   `json:"doc_id"`
	Filename      string  `json:"filename"`
	ChunksCreated int     `json:"chunks_created"`
	TextLength    int     `json:"text_length"`
	ChunkIDs      []int64 `json:"chunk_ids"`
}

// IngestError reports how far an ingestion got before it failed. With
// atomic ingestion DocID is zero and ChunkIDs is empty because the
// transaction was rolled back.
type IngestError struct {
	DocID    int64
	ChunkIDs []int64
	Err      error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingestion aborted with %d chunks persisted (doc_id=%d): %v", len(e.ChunkIDs), e.DocID, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

type PDFExtractor func(ctx context.Context, data []byte) (string, error)

type IngestOption func(*IngestService)

func WithPDFExtractor(fn PDFExtractor) IngestOption {
	return func(s *IngestService) {
		s.extractPDF = fn
	}
}

// WithFileStore archives every uploaded PDF after a successful ingestion.
func WithFileStore(store filestore.Store) IngestOption {
	return func(s *IngestService) {
		s.files = store
	}
}

type IngestService struct {
	store       repo.Gateway
	embedder    ai.IEmbedder
	chunker     *ai.Chunker
	files       filestore.Store
	extractPDF  PDFExtractor
	concurrency int
	atomic      bool
}

func NewIngestService(store repo.Gateway, embedder ai.IEmbedder, chunker *ai.Chunker, cfg config.RAGConfig, opts ...IngestOption) *IngestService {
	s := &IngestService{
		store:       store,
		embedder:    embedder,
		chunker:     chunker,
		extractPDF:  extract.PDF,
		concurrency: cfg.IngestConcurrency,
		atomic:      cfg.Atomic(),
	}
	if s.concurrency <= 0 {
		s.concurrency = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IngestService) IngestPDF(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fmt.Errorf("%w: only .pdf files are supported", appErr.ErrInvalid)
	}
	text, err := s.extractPDF(ctx, data)
	if err != nil {
		return nil, err
	}
	res, err := s.ingest(ctx, filename, text)
	if err != nil {
		return nil, err
	}
	s.archive(ctx, res.DocID, filename, data)
	return res, nil
}

func (s *IngestService) IngestText(ctx context.Context, name, text string) (*IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", appErr.ErrInvalid)
	}
	return s.ingest(ctx, name, text)
}

// IngestFile ingests a .pdf, .md or .txt file from disk under its base name.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return s.IngestPDF(ctx, name, data)
	}
	text, err := extract.File(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.IngestText(ctx, name, text)
}

func (s *IngestService) ingest(ctx context.Context, name, text string) (*IngestResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: document name is required", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("doc_name", name))
	chunks, err := s.chunker.Split(text)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", appErr.ErrExtraction)
	}
	start := time.Now()
	var docID int64
	var ids []int64
	if s.atomic {
		docID, ids, err = s.persistAtomic(ctx, name, chunks)
	} else {
		docID, ids, err = s.persistPartial(ctx, name, chunks)
	}
	if err != nil {
		logger.Error("ingestion failed",
			zap.Bool("atomic", s.atomic),
			zap.Int("chunks", len(chunks)),
			zap.Int("persisted", len(ids)),
			zap.Error(err),
		)
		return nil, &IngestError{DocID: docID, ChunkIDs: ids, Err: err}
	}
	logger.Info("document ingested",
		zap.Int64("doc_id", docID),
		zap.Int("chunks", len(ids)),
		zap.String("embedding_model", s.embedder.ModelName()),
		zap.Int("chunk_size", s.chunker.Size()),
		zap.Int("chunk_overlap", s.chunker.Overlap()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &IngestResult{
		DocID:         docID,
		Filename:      name,
		ChunksCreated: len(ids),
		TextLength:    utf8.RuneCountInString(text),
		ChunkIDs:      ids,
	}, nil
}

// persistAtomic embeds every chunk before opening the transaction so no
// network call runs while it is held.
func (s *IngestService) persistAtomic(ctx context.Context, name string, chunks []string) (int64, []int64, error) {
	vecs, err := s.embedAll(ctx, chunks)
	if err != nil {
		return 0, nil, err
	}
	var docID int64
	var ids []int64
	err = s.store.Transact(ctx, func(tx repo.Gateway) error {
		var err error
		docID, err = tx.InsertDocument(ctx, name)
		if err != nil {
			return err
		}
		ids = make([]int64, 0, len(chunks))
		for i, chunk := range chunks {
			id, err := tx.InsertChunk(ctx, docID, chunk, vecs[i])
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return 0, []int64{}, err
	}
	return docID, ids, nil
}

// persistPartial creates the document up front and stores chunks in order
// until the first chunk that failed to embed or insert.
func (s *IngestService) persistPartial(ctx context.Context, name string, chunks []string) (int64, []int64, error) {
	docID, err := s.store.InsertDocument(ctx, name)
	if err != nil {
		return 0, []int64{}, err
	}
	vecs, embedErr := s.embedAll(ctx, chunks)
	ids := make([]int64, 0, len(chunks))
	for i, chunk := range chunks {
		if vecs[i] == nil {
			break
		}
		id, err := s.store.InsertChunk(ctx, docID, chunk, vecs[i])
		if err != nil {
			return docID, ids, fmt.Errorf("chunk %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	if embedErr != nil {
		return docID, ids, embedErr
	}
	return docID, ids, nil
}

// embedAll embeds chunks with at most s.concurrency calls in flight. The
// result is index-aligned with chunks; entries after a failure may be nil.
func (s *IngestService) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	vecs := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := s.embedder.Embed(gctx, chunks[i])
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			vecs[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return vecs, err
	}
	return vecs, nil
}

func (s *IngestService) archive(ctx context.Context, docID int64, filename string, data []byte) {
	if s.files == nil {
		return
	}
	key := filestore.ArchiveKey(docID, filename)
	if err := s.files.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		logutil.GetLogger(ctx).Warn("archive upload failed",
			zap.String("store", s.files.Type()),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
