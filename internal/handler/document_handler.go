package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jfrchan18/rag-chatbot/internal/pkg/response"
	"github.com/jfrchan18/rag-chatbot/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type createDocumentRequest struct {
	DocName string `json:"doc_name"`
}

type chunkRequest struct {
	DocID     int64     `json:"doc_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req createDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.documents.Create(c.Request.Context(), req.DocName)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"doc_id": id})
}

func (h *DocumentHandler) AddChunk(c *gin.Context) {
	var req chunkRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.documents.AddChunk(c.Request.Context(), req.DocID, req.Content, req.Embedding)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunk_id": id})
}

func (h *DocumentHandler) EmbedAndAddChunk(c *gin.Context) {
	var req chunkRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.documents.EmbedAndAddChunk(c.Request.Context(), req.DocID, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunk_id": id})
}

func (h *DocumentHandler) Reset(c *gin.Context) {
	if _, err := h.documents.Reset(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"message":              "Database reset successfully",
		"documents_deleted":    true,
		"chunks_deleted":       true,
		"chat_history_deleted": true,
	})
}

func (h *DocumentHandler) Health(c *gin.Context) {
	response.Success(c, h.documents.Health(c.Request.Context()))
}
