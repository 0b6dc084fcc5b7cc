package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jfrchan18/rag-chatbot/internal/ai"
	"github.com/jfrchan18/rag-chatbot/internal/model"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

const (
	UnknownAnswer      = "I don't know based on the current knowledge base."
	EmptyAnswer        = "No content returned from model."
	answerSystemPrompt = "You are a helpful assistant. Use ONLY the provided context to answer. " +
		"If the answer is not in the context, say you don't know."
)

type Answer struct {
	Answer  string           `json:"answer"`
	Sources []model.ChunkHit `json:"sources"`
}

type DebugResult struct {
	Hits    []model.ChunkHit `json:"hits"`
	Context string           `json:"context"`
}

type AnswerService struct {
	retrieval *RetrievalService
	embedder  ai.IEmbedder
	generator ai.IGenerator
}

func NewAnswerService(retrieval *RetrievalService, embedder ai.IEmbedder, generator ai.IGenerator) *AnswerService {
	return &AnswerService{retrieval: retrieval, embedder: embedder, generator: generator}
}

// Ask answers question from the topK nearest chunks. No chat call is made
// when nothing is retrieved.
func (s *AnswerService) Ask(ctx context.Context, question string, topK *int) (*Answer, error) {
	hits, err := s.retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Answer{Answer: UnknownAnswer, Sources: []model.ChunkHit{}}, nil
	}
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: answerSystemPrompt},
		{Role: ai.RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s\nAnswer:", BuildContext(hits), question)},
	}
	text, err := s.generator.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: answer synthesis", err)
	}
	if text == "" {
		logutil.GetLogger(ctx).Warn("chat model returned empty answer", zap.Int("sources", len(hits)))
		text = EmptyAnswer
	}
	return &Answer{Answer: text, Sources: hits}, nil
}

// Debug returns what Ask would send to the model without calling it.
func (s *AnswerService) Debug(ctx context.Context, question string, topK *int) (*DebugResult, error) {
	hits, err := s.retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	return &DebugResult{Hits: hits, Context: BuildContext(hits)}, nil
}

func (s *AnswerService) retrieve(ctx context.Context, question string, topK *int) ([]model.ChunkHit, error) {
	k, err := s.retrieval.AskTopK(topK)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", appErr.ErrInvalid)
	}
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	return s.retrieval.search(ctx, vec, k)
}

// BuildContext renders hits as one bullet per chunk in ranked order.
func BuildContext(hits []model.ChunkHit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, "- "+h.Content)
	}
	return strings.Join(parts, "\n\n")
}
