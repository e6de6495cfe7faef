package store

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// DocumentChunk is one paragraph of a scraped page, owned by the store once upserted.
type DocumentChunk struct {
	ID       string         `json:"id"` // UUID
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// ScoredDocument is a query hit. Distance is cosine distance; lower is closer.
type ScoredDocument struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Distance  float32        `json:"distance"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}
