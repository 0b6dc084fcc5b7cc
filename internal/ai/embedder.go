package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

// Embedder validates provider output against the configured dimension. It
// never substitutes a placeholder vector for a failed call.
type Embedder struct {
	provider  IEmbedProvider
	model     string
	dimension int
	timeout   time.Duration
}

var _ IEmbedder = (*Embedder)(nil)

func NewEmbedder(provider IEmbedProvider, model string, dimension int, timeout time.Duration) *Embedder {
	return &Embedder{
		provider:  provider,
		model:     model,
		dimension: dimension,
		timeout:   timeout,
	}
}

func (e *Embedder) Dimension() int {
	return e.dimension
}

func (e *Embedder) ModelName() string {
	return e.model
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	start := time.Now()
	vecs, err := e.provider.Embed(ctx, e.model, texts, e.dimension)
	if err != nil {
		logutil.GetLogger(ctx).Error("embedding request failed",
			zap.String("provider", e.provider.Name()),
			zap.String("model", e.model),
			zap.Int("inputs", len(texts)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: embed via %s: %w", appErr.ErrExternalAPI, e.provider.Name(), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d inputs", appErr.ErrExternalAPI, e.provider.Name(), len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("%w: embedding %d has %d values, want %d", appErr.ErrDimension, i, len(v), e.dimension)
		}
	}
	return vecs, nil
}
