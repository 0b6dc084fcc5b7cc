package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jfrchan18/rag-chatbot/internal/ai"
	"github.com/jfrchan18/rag-chatbot/internal/ai/aitest"
	"github.com/jfrchan18/rag-chatbot/internal/config"
	"github.com/jfrchan18/rag-chatbot/internal/repo/repotest"
)

const testDim = 8

type testEnv struct {
	store     *repotest.Memory
	embedder  *aitest.Embedder
	generator *aitest.Generator
	chunker   *ai.Chunker
	cfg       config.RAGConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.RAGConfig{
		ChunkSize:         100,
		ChunkOverlap:      intPtr(20),
		SearchTopK:        5,
		SearchMaxTopK:     50,
		AskTopK:           4,
		AskMaxTopK:        20,
		IngestConcurrency: 4,
	}
	chunker, err := ai.NewChunker(cfg.ChunkSize, cfg.Overlap())
	require.NoError(t, err)
	return &testEnv{
		store:     repotest.NewMemory(testDim),
		embedder:  aitest.NewEmbedder(testDim),
		generator: &aitest.Generator{Reply: "generated answer"},
		chunker:   chunker,
		cfg:       cfg,
	}
}

func (e *testEnv) ingest(opts ...IngestOption) *IngestService {
	return NewIngestService(e.store, e.embedder, e.chunker, e.cfg, opts...)
}

func (e *testEnv) retrieval() *RetrievalService {
	return NewRetrievalService(e.store, e.embedder, e.cfg)
}

func (e *testEnv) answers() *AnswerService {
	return NewAnswerService(e.retrieval(), e.embedder, e.generator)
}

// paragraphs builds n paragraphs that each fit in one 100 character chunk.
func paragraphs(n int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf("para-%02d %s", i, strings.Repeat("x", 70)))
	}
	return strings.Join(parts, "\n\n")
}

func intPtr(v int) *int {
	return &v
}
