package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jfrchan18/rag-chatbot/internal/pkg/response"
	"github.com/jfrchan18/rag-chatbot/internal/service"
)

type SearchHandler struct {
	retrieval *service.RetrievalService
	answers   *service.AnswerService
}

func NewSearchHandler(retrieval *service.RetrievalService, answers *service.AnswerService) *SearchHandler {
	return &SearchHandler{retrieval: retrieval, answers: answers}
}

// TopK is a pointer so an explicit zero is rejected instead of defaulted.
type searchRequest struct {
	Embedding []float32 `json:"embedding"`
	TopK      *int      `json:"top_k"`
}

type searchTextRequest struct {
	Text string `json:"text"`
	TopK *int   `json:"top_k"`
}

type askRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if !bindJSON(c, &req) {
		return
	}
	hits, err := h.retrieval.SearchVector(c.Request.Context(), req.Embedding, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": hits})
}

func (h *SearchHandler) SearchText(c *gin.Context) {
	var req searchTextRequest
	if !bindJSON(c, &req) {
		return
	}
	hits, err := h.retrieval.SearchText(c.Request.Context(), req.Text, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": hits})
}

func (h *SearchHandler) Ask(c *gin.Context) {
	var req askRequest
	if !bindJSON(c, &req) {
		return
	}
	ans, err := h.answers.Ask(c.Request.Context(), req.Question, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, ans)
}

func (h *SearchHandler) AskDebug(c *gin.Context) {
	var req askRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.answers.Debug(c.Request.Context(), req.Question, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}
