package models

import "time"

// Source tags identifying where a passage came from.
const (
	SourceDocs   = "docs"
	SourceGithub = "github"
)

// Passage is one retrievable unit of ingested text. The triple
// (Source, DocID, ChunkID) is the unique key in the store; re-ingesting
// the same triple overwrites content, embedding and updated_at in place.
type Passage struct {
	Source    string    `json:"source"`
	DocID     string    `json:"doc_id"`
	ChunkID   int       `json:"chunk_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult pairs a stored passage with its cosine distance to the
// query vector. Lower scores mean more similar.
type SearchResult struct {
	Source  string  `json:"source"`
	DocID   string  `json:"doc_id"`
	ChunkID int     `json:"chunk_id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Answer is the response of the synthesis path.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}
