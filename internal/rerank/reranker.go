package rerank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/revsearch/internal/models"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 30 * time.Second

// Proposal is the outcome of asking the oracle: either a validated order or the reason
// there is none. Exactly one of Order and Err is set.
type Proposal struct {
	Order []int
	Err   error
}

// Valid reports whether the proposal can be applied.
func (p Proposal) Valid() bool {
	return p.Err == nil
}

// Reranker asks an Oracle for a better order and falls back to the input order on any failure.
type Reranker struct {
	oracle  Oracle
	timeout time.Duration
	logger  *zap.Logger
}

// RerankerOption configures a Reranker.
type RerankerOption func(*Reranker)

// WithTimeout bounds each oracle call.
func WithTimeout(d time.Duration) RerankerOption {
	return func(r *Reranker) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *zap.Logger) RerankerOption {
	return func(r *Reranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReranker creates a Reranker around oracle.
func NewReranker(oracle Oracle, opts ...RerankerOption) *Reranker {
	r := &Reranker{oracle: oracle, timeout: DefaultTimeout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type oracleAnswer struct {
	text string
	err  error
}

// Propose asks the oracle once, under the configured timeout, and validates the answer.
// It returns when the timeout or ctx expires even if the oracle has not, and a late
// answer is discarded. A panicking oracle is reported as an error proposal.
func (r *Reranker) Propose(ctx context.Context, query string, candidates []models.SearchResult) Proposal {
	if r.oracle == nil {
		return Proposal{Err: fmt.Errorf("%w: no oracle configured", models.ErrRerankOracle)}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	summaries := make([]string, len(candidates))
	for i, c := range candidates {
		summaries[i] = c.Summary
	}

	answers := make(chan oracleAnswer, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				answers <- oracleAnswer{err: fmt.Errorf("%w: oracle panicked: %v", models.ErrRerankOracle, rec)}
			}
		}()
		text, err := r.oracle.Rank(ctx, query, summaries)
		answers <- oracleAnswer{text: text, err: err}
	}()

	var ans oracleAnswer
	select {
	case ans = <-answers:
	case <-ctx.Done():
		return Proposal{Err: fmt.Errorf("%w: %w", models.ErrRerankOracle, ctx.Err())}
	}
	if ans.err != nil {
		if errors.Is(ans.err, models.ErrRerankOracle) {
			return Proposal{Err: ans.err}
		}
		return Proposal{Err: fmt.Errorf("%w: %w", models.ErrRerankOracle, ans.err)}
	}
	order, err := ParsePermutation(ans.text, len(candidates))
	if err != nil {
		return Proposal{Err: err}
	}
	return Proposal{Order: order}
}

// Rerank returns the candidates in the oracle's order, or the input unchanged when the
// oracle fails, times out or answers with anything but a permutation. The second result
// reports whether the oracle's order was applied. Lists of zero or one candidate are
// returned without consulting the oracle. Ranks are renumbered from 1.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []models.SearchResult) ([]models.SearchResult, bool) {
	if len(candidates) <= 1 {
		return candidates, false
	}

	p := r.Propose(ctx, query, candidates)
	if !p.Valid() {
		r.logger.Warn("rerank failed, keeping vector order",
			zap.String("query", query),
			zap.Int("candidates", len(candidates)),
			zap.Error(p.Err))
		return candidates, false
	}

	reordered := make([]models.SearchResult, len(candidates))
	for i, pos := range p.Order {
		reordered[i] = candidates[pos]
		reordered[i].Rank = i + 1
	}
	r.logger.Debug("reranked candidates", zap.String("query", query), zap.Ints("order", p.Order))
	return reordered, true
}
