// Package storage persists the corpus metadata that accompanies a built vector index.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/revsearch/internal/models"
)

// BuildInfo describes the index build the stored corpus belongs to.
type BuildInfo struct {
	Dimensions int
	IndexType  string
	Documents  int
	BuiltAt    time.Time
}

// Storage defines corpus persistence operations. Documents are keyed by ordinal.
type Storage interface {
	// ReplaceCorpus atomically replaces all documents; docs[i] gets ordinal i.
	ReplaceCorpus(ctx context.Context, docs []models.Document, info BuildInfo) error
	// LoadCorpus returns every document ordered by ordinal.
	LoadCorpus(ctx context.Context) ([]models.Document, error)
	GetDocument(ctx context.Context, ordinal int) (models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)
	GetBuildInfo(ctx context.Context) (*BuildInfo, error)

	Close() error
}
