package e2e

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/hyperjump/revsearch/internal/embedding"
)

// BagOfWordsEmbedder hashes lowercased words into buckets. Texts sharing words get
// similar vectors, which makes retrieval results predictable without a real model.
// The role prefix is dropped so a query and a passage with the same words match.
type BagOfWordsEmbedder struct {
	dimensions int
}

var _ embedding.Embedder = (*BagOfWordsEmbedder)(nil)

// NewBagOfWordsEmbedder creates an embedder with the given number of buckets.
func NewBagOfWordsEmbedder(dimensions int) *BagOfWordsEmbedder {
	return &BagOfWordsEmbedder{dimensions: dimensions}
}

func (e *BagOfWordsEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text = strings.TrimPrefix(text, string(embedding.RoleQuery))
	text = strings.TrimPrefix(text, string(embedding.RolePassage))

	vec := make([]float32, e.dimensions)
	for _, w := range words(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dimensions)]++
	}
	// every text gets a small shared component so no vector is zero
	vec[0] += 0.01
	return vec, nil
}

func (e *BagOfWordsEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *BagOfWordsEmbedder) Dimensions() int { return e.dimensions }

func (e *BagOfWordsEmbedder) Close() error { return nil }

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
