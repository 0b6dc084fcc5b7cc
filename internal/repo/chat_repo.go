package repo

import (
	"context"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/jfrchan18/rag-chatbot/internal/model"
	"github.com/jfrchan18/rag-chatbot/internal/pkg/dbutil"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

type ChatRepo struct {
	db dbutil.Querier
}

func NewChatRepo(db dbutil.Querier) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Create(ctx context.Context, sessionID string, role model.Role, message string) (int64, error) {
	data := map[string]interface{}{
		"session_id": sessionID,
		"role":       string(role),
		"message":    message,
	}
	sqlStr, args, err := builder.BuildInsert("chat_history", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	var id int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: insert chat message: %w", appErr.ErrStorage, err)
	}
	return id, nil
}

func (r *ChatRepo) ListBySession(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	where := map[string]interface{}{
		"session_id": sessionID,
		"_orderby":   "created_at asc, id asc",
	}
	sqlStr, args, err := builder.BuildSelect("chat_history", where, []string{"id", "session_id", "role", "message", "created_at"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list chat history: %w", appErr.ErrStorage, err)
	}
	defer rows.Close()
	msgs := make([]model.ChatMessage, 0)
	for rows.Next() {
		var msg model.ChatMessage
		var role string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Message, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan chat message: %w", appErr.ErrStorage, err)
		}
		msg.Role = model.Role(role)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list chat history: %w", appErr.ErrStorage, err)
	}
	return msgs, nil
}

func (r *ChatRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM chat_history")
	if err != nil {
		return 0, fmt.Errorf("%w: delete chat history: %w", appErr.ErrStorage, err)
	}
	return res.RowsAffected()
}
