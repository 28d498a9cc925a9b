package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// MockEmbedder is a deterministic embedder for tests and local development. It returns a
// fixed-dimension vector derived from the text hash so that the same text always gets the
// same embedding. Output is not normalized; the Encoder does that.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

// StaticEmbedder maps exact model inputs (prefix included) to fixed vectors.
// Unknown inputs fail. It counts model calls so tests can assert that nothing was encoded.
type StaticEmbedder struct {
	dimensions int
	mu         sync.RWMutex
	vectors    map[string][]float32
	calls      atomic.Int64
	err        error
}

// NewStaticEmbedder creates a StaticEmbedder over the given input-to-vector table.
func NewStaticEmbedder(dimensions int, vectors map[string][]float32) *StaticEmbedder {
	table := make(map[string][]float32, len(vectors))
	for k, v := range vectors {
		table[k] = cloneVector(v)
	}
	return &StaticEmbedder{dimensions: dimensions, vectors: table}
}

// Set adds or replaces the vector for input.
func (e *StaticEmbedder) Set(input string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[input] = cloneVector(vec)
}

// FailWith makes every subsequent call return err (nil restores normal behavior).
func (e *StaticEmbedder) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns how many Embed/EmbedBatch calls reached the model.
func (e *StaticEmbedder) Calls() int64 {
	return e.calls.Load()
}

func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	return e.lookup(ctx, text)
}

func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.lookup(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *StaticEmbedder) Dimensions() int { return e.dimensions }

func (e *StaticEmbedder) Close() error { return nil }

func (e *StaticEmbedder) lookup(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for input %q", text)
	}
	return cloneVector(v), nil
}

func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
