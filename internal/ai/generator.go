package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

type IGenerator interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

type Generator struct {
	provider    IChatProvider
	model       string
	temperature float64
	timeout     time.Duration
}

var _ IGenerator = (*Generator)(nil)

func NewGenerator(provider IChatProvider, model string, temperature float64, timeout time.Duration) *Generator {
	return &Generator{
		provider:    provider,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
	}
}

// Chat returns the trimmed completion text, which may be empty.
func (g *Generator) Chat(ctx context.Context, messages []Message) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	out, err := g.provider.Chat(ctx, g.model, messages, g.temperature)
	if err != nil {
		logutil.GetLogger(ctx).Error("chat completion failed",
			zap.String("provider", g.provider.Name()),
			zap.String("model", g.model),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: chat via %s: %w", appErr.ErrExternalAPI, g.provider.Name(), err)
	}
	return strings.TrimSpace(out), nil
}
