package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
	"github.com/jfrchan18/rag-chatbot/internal/pkg/response"
	"github.com/jfrchan18/rag-chatbot/internal/service"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, code := classify(err)
	logError(c, status, err)
	response.Error(c, status, code, err.Error())
}

// handleIngestError reports how much of a failed ingestion was stored next
// to the usual error fields.
func handleIngestError(c *gin.Context, err error) {
	var ingestErr *service.IngestError
	if !errors.As(err, &ingestErr) {
		handleError(c, err)
		return
	}
	status, code := classify(err)
	logError(c, status, err)
	chunkIDs := ingestErr.ChunkIDs
	if chunkIDs == nil {
		chunkIDs = []int64{}
	}
	response.ErrorWithFields(c, status, code, err.Error(), map[string]interface{}{
		"doc_id":         ingestErr.DocID,
		"chunk_ids":      chunkIDs,
		"chunks_created": len(chunkIDs),
	})
}

func logError(c *gin.Context, status int, err error) {
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	if appErr.IsClientError(err) || status < http.StatusInternalServerError {
		logger.Info("request rejected")
		return
	}
	logger.Error("request failed")
}

func classify(err error) (int, string) {
	switch {
	case appErr.IsInvalid(err):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, appErr.ErrExtraction):
		return http.StatusBadRequest, "extraction_failed"
	case errors.Is(err, appErr.ErrForeignKey):
		return http.StatusBadRequest, "foreign_key"
	case appErr.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, appErr.ErrExternalAPI):
		return http.StatusBadGateway, "external_api"
	case errors.Is(err, appErr.ErrDimension):
		return http.StatusInternalServerError, "dimension_mismatch"
	case errors.Is(err, appErr.ErrConnection):
		return http.StatusInternalServerError, "connection"
	case errors.Is(err, appErr.ErrStorage):
		return http.StatusInternalServerError, "storage"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request body: "+err.Error())
		return false
	}
	return true
}
