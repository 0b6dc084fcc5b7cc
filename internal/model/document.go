package model

import "time"

type Document struct {
	ID        int64     `json:"id"`
	Name      string    `json:"doc_name"`
	CreatedAt time.Time `json:"created_at"`
}
