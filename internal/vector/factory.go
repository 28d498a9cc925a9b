package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/revsearch/internal/models"
	"github.com/hyperjump/revsearch/pkg/utils"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeFlat is the pure-Go exact index.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeFAISS uses FAISS IndexFlatIP. Results are identical to flat.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewIndex creates an empty index of the specified type.
// Supported types: "flat" (default), "faiss".
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "":
		return NewFlatIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", indexType)
	}
}

// Build creates an index from rows. Every row is L2-normalized again (a no-op for rows
// that already have unit norm) and rows keep their input order, so row i gets ordinal i.
func Build(ctx context.Context, indexType string, dimensions int, rows [][]float32) (Index, error) {
	normalized := make([][]float32, len(rows))
	for i, row := range rows {
		if len(row) != dimensions {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", models.ErrDimensionMismatch, i, len(row), dimensions)
		}
		v := make([]float32, dimensions)
		copy(v, row)
		utils.NormalizeL2(v)
		normalized[i] = v
	}

	idx, err := NewIndex(indexType, dimensions)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(ctx, normalized); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to add rows: %w", err)
	}
	return idx, nil
}

// Open creates an index of the given type and loads it from path.
func Open(indexType string, dimensions int, path string) (Index, error) {
	idx, err := NewIndex(indexType, dimensions)
	if err != nil {
		return nil, err
	}
	if err := idx.Load(path); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
