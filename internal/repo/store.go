package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jfrchan18/rag-chatbot/internal/model"
	"github.com/jfrchan18/rag-chatbot/internal/pkg/dbutil"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
)

// Gateway is the persistence surface used by the services. Store is the
// postgres implementation; repotest.Memory is the in-memory one.
type Gateway interface {
	InsertDocument(ctx context.Context, name string) (int64, error)
	CountDocuments(ctx context.Context) (int64, error)
	InsertChunk(ctx context.Context, docID int64, content string, embedding []float32) (int64, error)
	SearchChunks(ctx context.Context, embedding []float32, topK int) ([]model.ChunkHit, error)
	InsertChatMessage(ctx context.Context, sessionID string, role model.Role, message string) (int64, error)
	GetChatHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	ResetAll(ctx context.Context) (*ResetResult, error)
	// Transact runs fn against a gateway bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Transact(ctx context.Context, fn func(tx Gateway) error) error
	Ping(ctx context.Context) error
}

type ResetResult struct {
	Chunks       int64
	Documents    int64
	ChatMessages int64
}

type Store struct {
	db        *sql.DB
	tx        *sql.Tx
	dimension int
	documents *DocumentRepo
	chunks    *ChunkRepo
	chats     *ChatRepo
}

var _ Gateway = (*Store)(nil)

func NewStore(db *sql.DB, dimension int) *Store {
	return newStore(db, nil, db, dimension)
}

func newStore(db *sql.DB, tx *sql.Tx, q dbutil.Querier, dimension int) *Store {
	return &Store{
		db:        db,
		tx:        tx,
		dimension: dimension,
		documents: NewDocumentRepo(q),
		chunks:    NewChunkRepo(q, dimension),
		chats:     NewChatRepo(q),
	}
}

func (s *Store) Dimension() int {
	return s.dimension
}

func (s *Store) InsertDocument(ctx context.Context, name string) (int64, error) {
	return s.documents.Create(ctx, name)
}

func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	return s.documents.Count(ctx)
}

func (s *Store) InsertChunk(ctx context.Context, docID int64, content string, embedding []float32) (int64, error) {
	return s.chunks.Create(ctx, docID, content, embedding)
}

// SearchChunks always runs inside a transaction because the HNSW search
// width is raised with SET LOCAL.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int) ([]model.ChunkHit, error) {
	if s.tx != nil {
		return s.chunks.Search(ctx, embedding, topK)
	}
	var hits []model.ChunkHit
	err := s.Transact(ctx, func(tx Gateway) error {
		var err error
		hits, err = tx.SearchChunks(ctx, embedding, topK)
		return err
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (s *Store) InsertChatMessage(ctx context.Context, sessionID string, role model.Role, message string) (int64, error) {
	return s.chats.Create(ctx, sessionID, role, message)
}

func (s *Store) GetChatHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	return s.chats.ListBySession(ctx, sessionID)
}

// ResetAll removes every chunk, document and chat message atomically.
func (s *Store) ResetAll(ctx context.Context) (*ResetResult, error) {
	res := &ResetResult{}
	err := s.Transact(ctx, func(tx Gateway) error {
		st := tx.(*Store)
		var err error
		if res.Chunks, err = st.chunks.DeleteAll(ctx); err != nil {
			return err
		}
		if res.Documents, err = st.documents.DeleteAll(ctx); err != nil {
			return err
		}
		if res.ChatMessages, err = st.chats.DeleteAll(ctx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) Transact(ctx context.Context, fn func(tx Gateway) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", appErr.ErrStorage, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(newStore(s.db, tx, tx, s.dimension)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", appErr.ErrStorage, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", appErr.ErrConnection, err)
	}
	return nil
}
