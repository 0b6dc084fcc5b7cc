// Package repotest provides gateways for tests: an in-memory fake and a
// helper that opens the postgres integration database.
package repotest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jfrchan18/rag-chatbot/internal/model"
	appErr "github.com/jfrchan18/rag-chatbot/internal/pkg/errors"
	"github.com/jfrchan18/rag-chatbot/internal/repo"
)

type memState struct {
	nextDocID   int64
	nextChunkID int64
	nextChatID  int64
	docs        []model.Document
	chunks      []model.Chunk
	chats       []model.ChatMessage
}

func (s memState) clone() memState {
	c := s
	c.docs = append([]model.Document(nil), s.docs...)
	c.chunks = append([]model.Chunk(nil), s.chunks...)
	c.chats = append([]model.ChatMessage(nil), s.chats...)
	return c
}

// Memory is an in-memory repo.Gateway. Search is an exact cosine scan.
type Memory struct {
	mu        *sync.Mutex
	state     *memState
	dimension int
	inTx      bool

	// ChunkHook, when set, runs before every chunk insert; a non-nil
	// return fails the insert.
	ChunkHook func(docID int64, content string) error
	PingErr   error
	CountErr  error
	Searches  int
}

var _ repo.Gateway = (*Memory)(nil)

func NewMemory(dimension int) *Memory {
	return &Memory{
		mu:        &sync.Mutex{},
		state:     &memState{},
		dimension: dimension,
	}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) InsertDocument(ctx context.Context, name string) (int64, error) {
	defer m.lock()()
	m.state.nextDocID++
	m.state.docs = append(m.state.docs, model.Document{ID: m.state.nextDocID, Name: name, CreatedAt: time.Now()})
	return m.state.nextDocID, nil
}

func (m *Memory) CountDocuments(ctx context.Context) (int64, error) {
	defer m.lock()()
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return int64(len(m.state.docs)), nil
}

func (m *Memory) InsertChunk(ctx context.Context, docID int64, content string, embedding []float32) (int64, error) {
	defer m.lock()()
	if len(embedding) != m.dimension {
		return 0, fmt.Errorf("%w: got %d values, column is vector(%d)", appErr.ErrDimension, len(embedding), m.dimension)
	}
	if m.ChunkHook != nil {
		if err := m.ChunkHook(docID, content); err != nil {
			return 0, err
		}
	}
	found := false
	for _, d := range m.state.docs {
		if d.ID == docID {
			found = true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: doc_id=%d", appErr.ErrForeignKey, docID)
	}
	m.state.nextChunkID++
	m.state.chunks = append(m.state.chunks, model.Chunk{
		ID:        m.state.nextChunkID,
		DocID:     docID,
		Content:   content,
		Embedding: append([]float32(nil), embedding...),
	})
	return m.state.nextChunkID, nil
}

func (m *Memory) SearchChunks(ctx context.Context, embedding []float32, topK int) ([]model.ChunkHit, error) {
	defer m.lock()()
	m.Searches++
	if len(embedding) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d values, column is vector(%d)", appErr.ErrDimension, len(embedding), m.dimension)
	}
	hits := make([]model.ChunkHit, 0, len(m.state.chunks))
	for _, c := range m.state.chunks {
		hits = append(hits, model.ChunkHit{
			ID:       c.ID,
			DocID:    c.DocID,
			Content:  c.Content,
			Distance: CosineDistance(embedding, c.Embedding),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	topK = repo.ClampTopK(topK)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *Memory) InsertChatMessage(ctx context.Context, sessionID string, role model.Role, message string) (int64, error) {
	defer m.lock()()
	m.state.nextChatID++
	m.state.chats = append(m.state.chats, model.ChatMessage{
		ID:        m.state.nextChatID,
		SessionID: sessionID,
		Role:      role,
		Message:   message,
		CreatedAt: time.Now(),
	})
	return m.state.nextChatID, nil
}

func (m *Memory) GetChatHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	defer m.lock()()
	out := make([]model.ChatMessage, 0)
	for _, c := range m.state.chats {
		if c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) ResetAll(ctx context.Context) (*repo.ResetResult, error) {
	defer m.lock()()
	res := &repo.ResetResult{
		Chunks:       int64(len(m.state.chunks)),
		Documents:    int64(len(m.state.docs)),
		ChatMessages: int64(len(m.state.chats)),
	}
	m.state.chunks = nil
	m.state.docs = nil
	m.state.chats = nil
	return res, nil
}

// Transact holds the lock for the whole of fn and restores the previous
// state when fn fails.
func (m *Memory) Transact(ctx context.Context, fn func(tx repo.Gateway) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state.clone()
	tx := *m
	tx.inTx = true
	err := fn(&tx)
	m.Searches = tx.Searches
	if err != nil {
		*m.state = snapshot
		return err
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return m.PingErr
}

// Documents returns a copy of the stored documents.
func (m *Memory) Documents() []model.Document {
	defer m.lock()()
	return append([]model.Document(nil), m.state.docs...)
}

// Chunks returns a copy of the stored chunks in insertion order.
func (m *Memory) Chunks() []model.Chunk {
	defer m.lock()()
	return append([]model.Chunk(nil), m.state.chunks...)
}

func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return math.NaN()
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
