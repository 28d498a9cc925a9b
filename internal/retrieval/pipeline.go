// Package retrieval wires the query encoder, the vector index and the corpus store into the
// retrieval entry point used by the HTTP server and the CLI.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/revsearch/internal/models"
	"github.com/hyperjump/revsearch/internal/vector"
	"go.uber.org/zap"
)

// QueryEncoder turns a query into a unit-norm vector.
type QueryEncoder interface {
	EncodeQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// DocumentStore resolves ordinals to documents.
type DocumentStore interface {
	Get(ordinal int) (models.Document, error)
	Len() int
}

// Reranker reorders candidates; it returns the input unchanged when it cannot do better.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []models.SearchResult) ([]models.SearchResult, bool)
}

// Pipeline owns the shared, read-only retrieval resources. It is built once at startup and
// used concurrently by every request; nothing in it is mutated after New returns.
type Pipeline struct {
	encoder  QueryEncoder
	index    vector.Searcher
	store    DocumentStore
	reranker Reranker
	logger   *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReranker enables the optional rerank stage.
func WithReranker(r Reranker) Option {
	return func(p *Pipeline) { p.reranker = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline. It fails with ErrCorpusMisaligned when the index and store
// have different row counts, and with ErrDimensionMismatch when the encoder's output
// dimension differs from the index dimension.
func New(encoder QueryEncoder, index vector.Searcher, store DocumentStore, opts ...Option) (*Pipeline, error) {
	if encoder == nil || index == nil || store == nil {
		return nil, fmt.Errorf("retrieval pipeline needs an encoder, an index and a store")
	}
	if index.Size() != store.Len() {
		return nil, fmt.Errorf("%w: index has %d vectors, corpus has %d documents", models.ErrCorpusMisaligned, index.Size(), store.Len())
	}
	if d := encoder.Dimensions(); d > 0 && d != index.Dimensions() {
		return nil, fmt.Errorf("%w: encoder produces %d dimensions, index has %d", models.ErrDimensionMismatch, d, index.Dimensions())
	}
	p := &Pipeline{
		encoder: encoder,
		index:   index,
		store:   store,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Size returns the number of searchable documents.
func (p *Pipeline) Size() int {
	return p.store.Len()
}

// Dimensions returns the index dimension.
func (p *Pipeline) Dimensions() int {
	return p.index.Dimensions()
}

// RerankEnabled reports whether a reranker is configured.
func (p *Pipeline) RerankEnabled() bool {
	return p.reranker != nil
}

// Retrieve returns the min(topK, N) documents closest to query, best first, in exactly the
// order the index returned them. topK must be positive; it is checked before any encoding.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidArgument, topK)
	}

	vec, err := p.encoder.EncodeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	hits, err := p.index.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for i, h := range hits {
		doc, err := p.store.Get(h.Ordinal)
		if err != nil {
			return nil, fmt.Errorf("resolving hit %d: %w", i, err)
		}
		results = append(results, models.NewSearchResult(doc, h.Score, i+1))
	}
	return results, nil
}

// RetrieveAndOptionallyRerank is the retrieval entry point. An empty Results slice means no
// matches; an error means the search failed. When rerank is requested and a reranker is
// configured, the candidates are reordered; rerank problems never fail the request.
func (p *Pipeline) RetrieveAndOptionallyRerank(ctx context.Context, query string, topK int, rerank bool) (*models.SearchResponse, error) {
	start := time.Now()
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := p.logger.With(zap.String("request_id", requestID))

	results, err := p.Retrieve(ctx, query, topK)
	if err != nil {
		log.Error("search failed", zap.String("query", query), zap.Int("top_k", topK), zap.Error(err))
		return nil, err
	}

	reranked := false
	if rerank {
		if p.reranker == nil {
			log.Debug("rerank requested but no reranker configured")
		} else {
			results, reranked = p.reranker.Rerank(ctx, query, results)
		}
	}

	elapsed := time.Since(start)
	log.Info("search completed",
		zap.String("query", query),
		zap.Int("top_k", topK),
		zap.Int("results", len(results)),
		zap.Bool("reranked", reranked),
		zap.Duration("duration", elapsed))

	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		Reranked:  reranked,
		QueryTime: elapsed.Milliseconds(),
		Query:     query,
		RequestID: requestID,
	}, nil
}
