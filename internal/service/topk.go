package service

import (
	"fmt"

	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

// resolveTopK applies def when topK is nil and rejects values outside
// [1, max].
func resolveTopK(topK *int, def, max int) (int, error) {
	if topK == nil {
		return def, nil
	}
	if *topK < 1 || *topK > max {
		return 0, fmt.Errorf("%w: top_k must be within [1, %d], got %d", appErr.ErrInvalid, max, *topK)
	}
	return *topK, nil
}
