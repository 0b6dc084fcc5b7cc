package model

type Chunk struct {
	ID        int64     `json:"id"`
	DocID     int64     `json:"doc_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// ChunkHit is a chunk returned by nearest-neighbor search. Distance is the
// cosine distance to the query vector, 0 meaning identical direction.
type ChunkHit struct {
	ID       int64   `json:"id"`
	DocID    int64   `json:"doc_id"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}
