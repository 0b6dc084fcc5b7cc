package repo

import (
	"context"
	"fmt"
	"sort"

	"github.com/pgvector/pgvector-go"

	"github.com/jfrchan18/rag-chatbot/internal/model"
	"github.com/jfrchan18/rag-chatbot/internal/pkg/dbutil"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

const (
	MinTopK = 1
	MaxTopK = 50

	// efSearch must stay >= MaxTopK or HNSW truncates the candidate list.
	efSearch = 100
)

type ChunkRepo struct {
	db        dbutil.Querier
	dimension int
}

func NewChunkRepo(db dbutil.Querier, dimension int) *ChunkRepo {
	return &ChunkRepo{db: db, dimension: dimension}
}

func (r *ChunkRepo) Create(ctx context.Context, docID int64, content string, embedding []float32) (int64, error) {
	if len(embedding) != r.dimension {
		return 0, fmt.Errorf("%w: got %d values, column is vector(%d)", appErr.ErrDimension, len(embedding), r.dimension)
	}
	const query = `
		INSERT INTO chunks (doc_id, content, embedding)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, docID, content, pgvector.NewVector(embedding)).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case dbutil.IsForeignKeyViolation(err):
		return 0, fmt.Errorf("%w: doc_id=%d", appErr.ErrForeignKey, docID)
	case dbutil.IsDimensionMismatch(err):
		return 0, fmt.Errorf("%w: %w", appErr.ErrDimension, err)
	default:
		return 0, fmt.Errorf("%w: insert chunk: %w", appErr.ErrStorage, err)
	}
}

// Search returns the topK chunks closest to embedding by cosine distance.
// Rows with equal distance are ordered by id.
func (r *ChunkRepo) Search(ctx context.Context, embedding []float32, topK int) ([]model.ChunkHit, error) {
	if len(embedding) != r.dimension {
		return nil, fmt.Errorf("%w: query has %d values, column is vector(%d)", appErr.ErrDimension, len(embedding), r.dimension)
	}
	topK = ClampTopK(topK)
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", efSearch)); err != nil {
		return nil, fmt.Errorf("%w: tune search: %w", appErr.ErrStorage, err)
	}
	const query = `
		SELECT id, doc_id, content, embedding <=> $1 AS distance
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search chunks: %w", appErr.ErrStorage, err)
	}
	defer rows.Close()
	hits := make([]model.ChunkHit, 0, topK)
	for rows.Next() {
		var hit model.ChunkHit
		if err := rows.Scan(&hit.ID, &hit.DocID, &hit.Content, &hit.Distance); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %w", appErr.ErrStorage, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: search chunks: %w", appErr.ErrStorage, err)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}

func (r *ChunkRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM chunks")
	if err != nil {
		return 0, fmt.Errorf("%w: delete chunks: %w", appErr.ErrStorage, err)
	}
	return res.RowsAffected()
}

func ClampTopK(topK int) int {
	if topK < MinTopK {
		return MinTopK
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}
