package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/revsearch/internal/models"
)

const (
	flatMagic   = "RSVX"
	flatVersion = uint32(1)
	// magic + version + dims + count
	flatHeaderSize = 4 + 4 + 4 + 8
)

// ErrCorruptIndex is returned when a persisted index fails validation.
var ErrCorruptIndex = errors.New("corrupt index file")

// FlatIndex is an exact brute-force inner-product index. Rows are stored contiguously
// in insertion order; row i has ordinal i.
type FlatIndex struct {
	dimensions int
	data       []float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Dimensions returns the row dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Size returns the number of stored rows.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dimensions
}

// Add appends rows in order. Either all rows are added or none.
func (f *FlatIndex) Add(ctx context.Context, rows [][]float32) error {
	for i, row := range rows {
		if len(row) != f.dimensions {
			return fmt.Errorf("%w: row %d has %d values, index expects %d", models.ErrDimensionMismatch, i, len(row), f.dimensions)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		f.data = append(f.data, row...)
	}
	return nil
}

// Search returns the min(k, Size()) rows with the highest inner product, score descending,
// ties broken by ascending ordinal.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d values, index expects %d", models.ErrDimensionMismatch, len(query), f.dimensions)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidArgument, k)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.data) / f.dimensions
	if n == 0 {
		return []Hit{}, nil
	}
	if k > n {
		k = n
	}

	best := newTopK(k)
	for i := 0; i < n; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := f.data[i*f.dimensions : (i+1)*f.dimensions]
		best.offer(Hit{Ordinal: i, Score: InnerProduct(query, row)})
	}
	return best.sorted(), nil
}

// Row returns a copy of the row at ordinal.
func (f *FlatIndex) Row(ordinal int) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(f.data)/f.dimensions {
		return nil, fmt.Errorf("%w: %d", models.ErrIndexOutOfBounds, ordinal)
	}
	row := make([]float32, f.dimensions)
	copy(row, f.data[ordinal*f.dimensions:])
	return row, nil
}

// Save persists the index to path. Directory is created if needed. Format: magic "RSVX",
// version (4), dimension (4), count (8), then count*dimension little-endian float32.
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	w := bufio.NewWriter(file)

	header := make([]byte, flatHeaderSize)
	copy(header, flatMagic)
	binary.LittleEndian.PutUint32(header[4:], flatVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(f.dimensions))
	binary.LittleEndian.PutUint64(header[12:], uint64(len(f.data)/f.dimensions))
	if _, err := w.Write(header); err != nil {
		file.Close()
		return fmt.Errorf("write header: %w", err)
	}

	buf := make([]byte, 4)
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := w.Write(buf); err != nil {
			file.Close()
			return fmt.Errorf("write vectors: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flush index file: %w", err)
	}
	return file.Close()
}

// Load replaces the index contents with the file at path. The file's dimension must match.
func (f *FlatIndex) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}

	header := make([]byte, flatHeaderSize)
	if _, err := io.ReadFull(file, header); err != nil {
		return fmt.Errorf("%w: short header: %v", ErrCorruptIndex, err)
	}
	if string(header[:4]) != flatMagic {
		return fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, header[:4])
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != flatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptIndex, v)
	}
	dim := int(binary.LittleEndian.Uint32(header[8:]))
	if dim != f.dimensions {
		return fmt.Errorf("%w: file has %d dimensions, index expects %d", models.ErrDimensionMismatch, dim, f.dimensions)
	}
	n := binary.LittleEndian.Uint64(header[12:])
	want := int64(flatHeaderSize) + int64(n)*int64(dim)*4
	if info.Size() != want {
		return fmt.Errorf("%w: %d rows need %d bytes, file has %d", ErrCorruptIndex, n, want, info.Size())
	}

	payload := make([]byte, int64(n)*int64(dim)*4)
	if _, err := io.ReadFull(bufio.NewReader(file), payload); err != nil {
		return fmt.Errorf("%w: read vectors: %v", ErrCorruptIndex, err)
	}
	data := make([]float32, len(payload)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	f.mu.Lock()
	f.data = data
	f.mu.Unlock()
	return nil
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
