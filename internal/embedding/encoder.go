package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/revsearch/internal/models"
	"github.com/hyperjump/revsearch/pkg/utils"
	"go.uber.org/zap"
)

// Role selects the input prefix the E5 model family was trained with.
type Role string

const (
	RolePassage Role = "passage: "
	RoleQuery   Role = "query: "
)

// DefaultBatchSize is the number of texts sent to the model per call.
const DefaultBatchSize = 64

// Encoder turns texts into unit-norm vectors: it prefixes each text with its role,
// batches calls to the underlying model and L2-normalizes every vector individually,
// so the batch size never changes the output.
type Encoder struct {
	model     Embedder
	cache     *EmbeddingCache
	batchSize int
	logger    *zap.Logger
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithCache enables an LRU cache of the given capacity, keyed by the prefixed text.
func WithCache(capacity int) EncoderOption {
	return func(e *Encoder) {
		if capacity > 0 {
			e.cache = NewEmbeddingCache(capacity)
		}
	}
}

// WithBatchSize sets how many texts go to the model per call.
func WithBatchSize(n int) EncoderOption {
	return func(e *Encoder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EncoderOption {
	return func(e *Encoder) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEncoder wraps model. A nil model is accepted; every Encode call then fails with ErrEncoding.
func NewEncoder(model Embedder, opts ...EncoderOption) *Encoder {
	e := &Encoder{
		model:     model,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dimensions returns the model's output dimension, or 0 when no model is loaded.
func (e *Encoder) Dimensions() int {
	if e.model == nil {
		return 0
	}
	return e.model.Dimensions()
}

// EncodeQuery encodes a single search query with the query role.
func (e *Encoder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := e.Encode(ctx, []string{text}, RoleQuery)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Encode returns one unit-norm vector per text, in input order.
// An empty input yields an empty output without touching the model.
func (e *Encoder) Encode(ctx context.Context, texts []string, role Role) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if e.model == nil {
		return nil, fmt.Errorf("%w: no embedding model loaded", models.ErrEncoding)
	}
	if role != RolePassage && role != RoleQuery {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrEncoding, role)
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", models.ErrEncoding, i)
		}
		inputs[i] = string(role) + t
	}

	dims := e.model.Dimensions()
	out := make([][]float32, len(inputs))

	var missIdx []int
	for i, in := range inputs {
		if e.cache != nil {
			if v, ok := e.cache.Get(in); ok {
				out[i] = v
				continue
			}
		}
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missIdx); start += e.batchSize {
		end := start + e.batchSize
		if end > len(missIdx) {
			end = len(missIdx)
		}
		idx := missIdx[start:end]
		batch := make([]string, len(idx))
		for j, i := range idx {
			batch[j] = inputs[i]
		}

		vecs, err := e.model.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrEncoding, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("%w: model returned %d vectors for %d inputs", models.ErrEncoding, len(vecs), len(batch))
		}
		for j, v := range vecs {
			if len(v) != dims {
				return nil, fmt.Errorf("%w: model returned %d dimensions, expected %d", models.ErrEncoding, len(v), dims)
			}
			if utils.L2Norm(v) == 0 {
				return nil, fmt.Errorf("%w: model returned a zero vector for input %d", models.ErrEncoding, idx[j])
			}
			vec := cloneVector(v)
			utils.NormalizeL2(vec)
			out[idx[j]] = vec
			if e.cache != nil {
				e.cache.Set(inputs[idx[j]], vec)
			}
		}
	}

	e.logger.Debug("encoded texts",
		zap.Int("count", len(texts)),
		zap.Int("model_inputs", len(missIdx)),
		zap.String("role", strings.TrimSuffix(string(role), ": ")))
	return out, nil
}

// Close releases the underlying model.
func (e *Encoder) Close() error {
	if e.model == nil {
		return nil
	}
	return e.model.Close()
}
