package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jfrchan18/rag-chatbot/internal/ai"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
	"github.com/jfrchan18/rag-chatbot/internal/repo"
)

const (
	ServiceName = "api"
	Version     = "0.1.0"
)

type Health struct {
	OK        bool   `json:"ok"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Documents *int64 `json:"documents"`
}

type DocumentService struct {
	store    repo.Gateway
	embedder ai.IEmbedder
}

func NewDocumentService(store repo.Gateway, embedder ai.IEmbedder) *DocumentService {
	return &DocumentService{store: store, embedder: embedder}
}

func (s *DocumentService) Create(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: doc_name is required", appErr.ErrInvalid)
	}
	return s.store.InsertDocument(ctx, name)
}

// AddChunk stores a chunk with a caller-supplied embedding.
func (s *DocumentService) AddChunk(ctx context.Context, docID int64, content string, embedding []float32) (int64, error) {
	if strings.TrimSpace(content) == "" {
		return 0, fmt.Errorf("%w: content is required", appErr.ErrInvalid)
	}
	if dim := s.embedder.Dimension(); len(embedding) != dim {
		return 0, fmt.Errorf("%w: embedding has %d values, want %d", appErr.ErrInvalid, len(embedding), dim)
	}
	return s.store.InsertChunk(ctx, docID, content, embedding)
}

// EmbedAndAddChunk embeds content server side and stores it.
func (s *DocumentService) EmbedAndAddChunk(ctx context.Context, docID int64, content string) (int64, error) {
	if strings.TrimSpace(content) == "" {
		return 0, fmt.Errorf("%w: content is required", appErr.ErrInvalid)
	}
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return 0, err
	}
	return s.store.InsertChunk(ctx, docID, content, vec)
}

func (s *DocumentService) Count(ctx context.Context) (int64, error) {
	return s.store.CountDocuments(ctx)
}

func (s *DocumentService) Reset(ctx context.Context) (*repo.ResetResult, error) {
	res, err := s.store.ResetAll(ctx)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("database reset",
		zap.Int64("chunks", res.Chunks),
		zap.Int64("documents", res.Documents),
		zap.Int64("chat_messages", res.ChatMessages),
	)
	return res, nil
}

// Health never fails; Documents is nil when the store cannot be counted.
func (s *DocumentService) Health(ctx context.Context) *Health {
	h := &Health{OK: true, Service: ServiceName, Version: Version}
	count, err := s.store.CountDocuments(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("health: count documents failed", zap.Error(err))
		return h
	}
	h.Documents = &count
	return h
}
