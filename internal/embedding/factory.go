package embedding

import (
	"fmt"

	"github.com/hyperjump/revsearch/internal/config"
)

// NewEmbedder creates the raw model selected by cfg.Provider (onnx, http or mock).
func NewEmbedder(cfg *config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "onnx":
		return NewONNXEmbedder(cfg.ModelPath, cfg.Tokenizer(), cfg.Dimensions, cfg.MaxTokens)
	case "http":
		return NewHTTPEmbedder(cfg.BaseURL, cfg.Model, cfg.APIKey(), cfg.Dimensions, cfg.Timeout)
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// NewEncoderFromConfig creates the model and wraps it in an Encoder with the configured
// batch size and cache.
func NewEncoderFromConfig(cfg *config.EmbeddingConfig, opts ...EncoderOption) (*Encoder, error) {
	model, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	base := []EncoderOption{WithBatchSize(cfg.BatchSize), WithCache(cfg.CacheSize)}
	return NewEncoder(model, append(base, opts...)...), nil
}
