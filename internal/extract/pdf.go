package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

// PDF returns the plain text of every readable page, each prefixed with a
// "--- Page N ---" marker and separated by a blank line. Pages that fail to
// parse or carry no text are skipped.
func PDF(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: pdf parser panic: %v", appErr.ErrExtraction, r)
		}
	}()
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty pdf", appErr.ErrExtraction)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", appErr.ErrExtraction, err)
	}
	logger := logutil.GetLogger(ctx)
	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		content, err := pageText(reader, i)
		if err != nil {
			logger.Warn("skip unreadable pdf page", zap.Int("page", i), zap.Error(err))
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", i, content))
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("%w: no extractable text in %d pages", appErr.ErrExtraction, total)
	}
	logger.Debug("pdf text extracted", zap.Int("pages", total), zap.Int("text_pages", len(pages)))
	return strings.Join(pages, "\n\n"), nil
}

func pageText(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page parser panic: %v", r)
		}
	}()
	page := reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
