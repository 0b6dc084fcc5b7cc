package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jfrchan18/rag-chatbot/internal/model"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
	"github.com/jfrchan18/rag-chatbot/internal/repo"
)

type ChatService struct {
	store repo.Gateway
}

func NewChatService(store repo.Gateway) *ChatService {
	return &ChatService{store: store}
}

func (s *ChatService) AddMessage(ctx context.Context, sessionID, role, message string) (int64, error) {
	r, ok := model.ParseRole(role)
	if !ok {
		return 0, fmt.Errorf("%w: role must be 'user' or 'assistant'", appErr.ErrInvalid)
	}
	if strings.TrimSpace(sessionID) == "" {
		return 0, fmt.Errorf("%w: session_id is required", appErr.ErrInvalid)
	}
	if strings.TrimSpace(message) == "" {
		return 0, fmt.Errorf("%w: message is required", appErr.ErrInvalid)
	}
	return s.store.InsertChatMessage(ctx, sessionID, r, message)
}

// History returns the session's messages oldest first; an unknown session
// yields an empty list.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	return s.store.GetChatHistory(ctx, sessionID)
}
