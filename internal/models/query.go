package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTopK is used when a query does not specify how many results it wants.
	DefaultTopK = 10
	// MaxQueryChars bounds the query text in characters, counted after trimming.
	MaxQueryChars = 200
)

// SearchQuery is a retrieval request as received from a client.
type SearchQuery struct {
	Query  string `json:"query"`
	TopK   int    `json:"top_k,omitempty"`
	Rerank bool   `json:"rerank,omitempty"`
}

// Validate checks the query and applies defaults. Text longer than MaxQueryChars is
// rejected. A zero TopK becomes DefaultTopK,
// a negative one is rejected, and values above maxTopK are capped (maxTopK <= 0 disables the cap).
func (q *SearchQuery) Validate(maxTopK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidArgument)
	}
	if n := utf8.RuneCountInString(q.Query); n > MaxQueryChars {
		return fmt.Errorf("%w: query is %d characters, limit is %d", ErrInvalidArgument, n, MaxQueryChars)
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidArgument, q.TopK)
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}
