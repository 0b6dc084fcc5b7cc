// Package aitest provides deterministic embedders and generators for tests.
package aitest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfrchan18/rag-chatbot/internal/ai"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

// Vector maps text to a fixed-width vector; equal texts give equal vectors
// and the vector is never all zeros.
func Vector(text string, dimension int) []float32 {
	v := make([]float32, dimension)
	v[0] = 0.01
	h := 0
	for _, r := range strings.ToLower(text) {
		h = (h*31 + int(r)) % dimension
		v[h]++
	}
	return v
}

type Embedder struct {
	Dim int
	// Err fails every call.
	Err error
	// FailOn fails any call whose input contains this substring.
	FailOn string
	// Vectors overrides Vector for exact texts.
	Vectors map[string][]float32

	calls atomic.Int64
}

var _ ai.IEmbedder = (*Embedder)(nil)

func NewEmbedder(dimension int) *Embedder {
	return &Embedder{Dim: dimension}
}

func (e *Embedder) Calls() int {
	return int(e.calls.Load())
}

func (e *Embedder) Dimension() int {
	return e.Dim
}

func (e *Embedder) ModelName() string {
	return "fake-embedding"
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.Err != nil {
		return nil, e.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", appErr.ErrExternalAPI, err)
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if e.FailOn != "" && strings.Contains(t, e.FailOn) {
			return nil, fmt.Errorf("%w: fake failure for %q", appErr.ErrExternalAPI, e.FailOn)
		}
		if v, ok := e.Vectors[t]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, Vector(t, e.Dim))
	}
	return out, nil
}

type Generator struct {
	Reply string
	Err   error

	mu    sync.Mutex
	calls [][]ai.Message
}

var _ ai.IGenerator = (*Generator)(nil)

func (g *Generator) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, append([]ai.Message(nil), messages...))
	g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	return strings.TrimSpace(g.Reply), nil
}

func (g *Generator) Calls() [][]ai.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]ai.Message(nil), g.calls...)
}
