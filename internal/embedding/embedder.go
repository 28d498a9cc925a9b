// Package embedding turns text into unit-norm vectors: raw models (ONNX, HTTP, mock)
// behind the Embedder interface, and the role-aware Encoder used by indexing and retrieval.
package embedding

import "context"

// Embedder is a raw text-to-vector model. Implementations must be safe for
// concurrent use; the Encoder adds role prefixes, normalization and caching on top.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
