// Package retrieval provides semantic search over the phone catalog and the
// gate that decides whether retrieved evidence is good enough to ground an answer.
package retrieval

import "context"

// Evidence is one retrieved catalog document. Score is the relevance in
// [0, 1], or nil when the retriever has no confidence signal.
type Evidence struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    *float64       `json:"score,omitempty"`
}

// Retriever returns up to k pieces of evidence for query, most relevant first.
// Implementations decide internally whether scores are available.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Evidence, error)
}

// Scored returns a pointer to s for building scored Evidence.
func Scored(s float64) *float64 { return &s }
