package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jfrchan18/rag-chatbot/internal/pkg/response"
	"github.com/jfrchan18/rag-chatbot/internal/service"
)

type ChatHandler struct {
	chats *service.ChatService
}

func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Message   string `json:"message"`
}

func (h *ChatHandler) Add(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.chats.AddMessage(c.Request.Context(), req.SessionID, req.Role, req.Message)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chat_id": id})
}

func (h *ChatHandler) History(c *gin.Context) {
	history, err := h.chats.History(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"history": history})
}
