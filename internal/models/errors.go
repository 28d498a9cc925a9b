package models

import "errors"

var (
	// ErrEncoding means the embedding model is unavailable, misconfigured, or got unusable input.
	ErrEncoding = errors.New("encoding failed")
	// ErrDimensionMismatch means a query vector and the index disagree on dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidArgument means the caller passed a non-positive k/top_k or an empty query.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexOutOfBounds means an ordinal has no corpus entry: the build artifacts are inconsistent.
	ErrIndexOutOfBounds = errors.New("ordinal out of bounds")
	// ErrCorpusMisaligned means the vector index and the corpus metadata do not have the same rows.
	ErrCorpusMisaligned = errors.New("corpus and index are misaligned")
	// ErrRerankOracle covers every ranking oracle failure. It is always recovered locally.
	ErrRerankOracle = errors.New("rerank oracle failed")
)
