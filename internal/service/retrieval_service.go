package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jfrchan18/rag-chatbot/internal/ai"
	"github.com/jfrchan18/rag-chatbot/internal/config"
	"github.com/jfrchan18/rag-chatbot/internal/model"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
	"github.com/jfrchan18/rag-chatbot/internal/repo"
)

type RetrievalService struct {
	store    repo.Gateway
	embedder ai.IEmbedder
	cfg      config.RAGConfig
}

func NewRetrievalService(store repo.Gateway, embedder ai.IEmbedder, cfg config.RAGConfig) *RetrievalService {
	return &RetrievalService{store: store, embedder: embedder, cfg: cfg}
}

// SearchText embeds text and returns the nearest chunks.
func (s *RetrievalService) SearchText(ctx context.Context, text string, topK *int) ([]model.ChunkHit, error) {
	k, err := resolveTopK(topK, s.cfg.SearchTopK, s.cfg.SearchMaxTopK)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", appErr.ErrInvalid)
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, vec, k)
}

// SearchVector searches with a vector the caller already computed.
func (s *RetrievalService) SearchVector(ctx context.Context, vec []float32, topK *int) ([]model.ChunkHit, error) {
	k, err := resolveTopK(topK, s.cfg.SearchTopK, s.cfg.SearchMaxTopK)
	if err != nil {
		return nil, err
	}
	if err := s.checkVector(vec); err != nil {
		return nil, err
	}
	return s.search(ctx, vec, k)
}

// AskTopK validates a question-answering top_k, which has a tighter bound
// than generic search.
func (s *RetrievalService) AskTopK(topK *int) (int, error) {
	return resolveTopK(topK, s.cfg.AskTopK, s.cfg.AskMaxTopK)
}

func (s *RetrievalService) checkVector(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: embedding is required", appErr.ErrInvalid)
	}
	if dim := s.embedder.Dimension(); len(vec) != dim {
		return fmt.Errorf("%w: embedding has %d values, want %d", appErr.ErrInvalid, len(vec), dim)
	}
	return nil
}

func (s *RetrievalService) search(ctx context.Context, vec []float32, k int) ([]model.ChunkHit, error) {
	hits, err := s.store.SearchChunks(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []model.ChunkHit{}
	}
	return hits, nil
}
