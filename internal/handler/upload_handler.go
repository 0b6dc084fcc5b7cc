package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jfrchan18/rag-chatbot/internal/pkg/response"
	"github.com/jfrchan18/rag-chatbot/internal/service"
)

const (
	uploadMessage = "PDF uploaded and processed successfully"
	// multipartOverhead covers the multipart boundaries and part headers
	// around the file itself.
	multipartOverhead = 64 * 1024
)

type UploadHandler struct {
	ingest        *service.IngestService
	maxUploadSize int64
}

func NewUploadHandler(ingest *service.IngestService, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{ingest: ingest, maxUploadSize: maxUploadSize}
}

type uploadResponse struct {
	Message string `json:"message"`
	*service.IngestResult
}

func (h *UploadHandler) UploadPDF(c *gin.Context) {
	if h.maxUploadSize > 0 {
		limit := h.maxUploadSize + multipartOverhead
		if c.Request.ContentLength > limit {
			h.tooLarge(c)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return
		}
		response.Error(c, http.StatusBadRequest, "invalid", "file is required")
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, "invalid", "Only PDF files are supported")
		return
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		h.tooLarge(c)
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "failed to read file")
		return
	}
	res, err := h.ingest.IngestPDF(c.Request.Context(), filepath.Base(file.Filename), data)
	if err != nil {
		handleIngestError(c, err)
		return
	}
	response.Success(c, uploadResponse{Message: uploadMessage, IngestResult: res})
}

func (h *UploadHandler) tooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, "too_large", "file too large (max "+formatUploadLimit(h.maxUploadSize)+")")
}
