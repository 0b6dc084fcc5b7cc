package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole normalizes r and reports whether it is a known role.
func ParseRole(r string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(r)))
	switch role {
	case RoleUser, RoleAssistant:
		return role, true
	}
	return "", false
}

type ChatMessage struct {
	ID        int64     `json:"-"`
	SessionID string    `json:"-"`
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
