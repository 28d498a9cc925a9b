// Package models defines core data structures for documents, queries, and search results.
package models

// Document is one corpus entry. Its identity is its ordinal position in the
// corpus; ID is carried for display only and is never used as a lookup key.
type Document struct {
	ID      int64  `json:"id"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}
