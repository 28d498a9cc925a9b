// Package vector provides exact inner-product vector indexes over unit-norm rows.
// Row i of an index is addressed by its ordinal i, which is also its position in the corpus.
package vector

import "context"

// Hit is one search result: the ordinal of a stored row and its inner product with the query.
type Hit struct {
	Ordinal int     `json:"ordinal"`
	Score   float64 `json:"score"`
}

// Searcher is the read-only view of an index used at query time.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Dimensions() int
	Size() int
}

// Index is a flat inner-product index. Add is only called while building; once an
// index is serving searches its rows are never modified or reordered.
type Index interface {
	Searcher
	Add(ctx context.Context, rows [][]float32) error
	Save(path string) error
	Load(path string) error
	Type() string
	Close() error
}
