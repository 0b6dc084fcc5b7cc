package repo

import (
	"context"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/jfrchan18/rag-chatbot/internal/pkg/dbutil"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

type DocumentRepo struct {
	db dbutil.Querier
}

func NewDocumentRepo(db dbutil.Querier) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, name string) (int64, error) {
	data := map[string]interface{}{
		"doc_name": name,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	var id int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: insert document: %w", appErr.ErrStorage, err)
	}
	return id, nil
}

func (r *DocumentRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count documents: %w", appErr.ErrStorage, err)
	}
	return count, nil
}

func (r *DocumentRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents")
	if err != nil {
		return 0, fmt.Errorf("%w: delete documents: %w", appErr.ErrStorage, err)
	}
	return res.RowsAffected()
}
