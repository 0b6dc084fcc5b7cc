package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jfrchan18/rag-chatbot/internal/ai/aitest"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

func seedChunks(t *testing.T, env *testEnv, contents ...string) {
	t.Helper()
	docs := NewDocumentService(env.store, env.embedder)
	docID, err := docs.Create(context.Background(), "seed")
	require.NoError(t, err)
	for _, c := range contents {
		_, err := docs.EmbedAndAddChunk(context.Background(), docID, c)
		require.NoError(t, err)
	}
}

func TestSearchTopKBoundaries(t *testing.T) {
	env := newTestEnv(t)
	svc := env.retrieval()
	vec := aitest.Vector("q", testDim)

	for _, k := range []int{0, -1, 51} {
		_, err := svc.SearchText(context.Background(), "q", intPtr(k))
		require.ErrorIs(t, err, appErr.ErrInvalid, "top_k=%d", k)
		_, err = svc.SearchVector(context.Background(), vec, intPtr(k))
		require.ErrorIs(t, err, appErr.ErrInvalid, "top_k=%d", k)
	}
	require.Zero(t, env.embedder.Calls())
	require.Zero(t, env.store.Searches)

	for _, k := range []int{1, 50} {
		_, err := svc.SearchVector(context.Background(), vec, intPtr(k))
		require.NoError(t, err)
	}
}

func TestSearchDefaultsAndOrdering(t *testing.T) {
	env := newTestEnv(t)
	seedChunks(t, env, "alpha beta", "gamma delta", "epsilon", "zeta eta theta", "iota", "kappa lambda", "mu")
	svc := env.retrieval()

	hits, err := svc.SearchText(context.Background(), "alpha beta", nil)
	require.NoError(t, err)
	require.Len(t, hits, env.cfg.SearchTopK)
	require.Equal(t, "alpha beta", hits[0].Content)
	require.InDelta(t, 0, hits[0].Distance, 1e-6)
	for i := 1; i < len(hits); i++ {
		require.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}

	hits, err = svc.SearchVector(context.Background(), aitest.Vector("mu", testDim), intPtr(50))
	require.NoError(t, err)
	require.Len(t, hits, 7)
	require.Equal(t, "mu", hits[0].Content)
}

func TestSearchValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	svc := env.retrieval()

	_, err := svc.SearchText(context.Background(), "  ", nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.SearchVector(context.Background(), nil, nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.SearchVector(context.Background(), []float32{1, 2}, nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Zero(t, env.store.Searches)
}

func TestSearchEmptyStoreReturnsEmptySlice(t *testing.T) {
	env := newTestEnv(t)
	hits, err := env.retrieval().SearchText(context.Background(), "anything", nil)
	require.NoError(t, err)
	require.NotNil(t, hits)
	require.Empty(t, hits)
}

func TestSearchSurfacesEmbeddingFailure(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.Err = appErr.ErrExternalAPI
	_, err := env.retrieval().SearchText(context.Background(), "q", nil)
	require.ErrorIs(t, err, appErr.ErrExternalAPI)
	require.Zero(t, env.store.Searches)
}
