// Package indexer runs the offline pipeline: encode a corpus into a vector file and metadata,
// then build the vector index and the corpus database from those two files.
package indexer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hyperjump/revsearch/internal/corpus"
	"github.com/hyperjump/revsearch/internal/embedding"
	"github.com/hyperjump/revsearch/internal/matrix"
	"github.com/hyperjump/revsearch/internal/models"
	"github.com/hyperjump/revsearch/internal/storage"
	"github.com/hyperjump/revsearch/internal/vector"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const defaultChunkSize = 64

// Indexer encodes corpora and builds indexes.
type Indexer struct {
	encoder   *embedding.Encoder
	storage   storage.Storage
	indexType string
	chunkSize int
	progress  io.Writer
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithProgress renders a progress bar to w while encoding.
func WithProgress(w io.Writer) IndexerOption {
	return func(idx *Indexer) { idx.progress = w }
}

// WithChunkSize sets how many summaries are encoded between progress updates.
func WithChunkSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.chunkSize = n
		}
	}
}

// NewIndexer creates an indexer. encoder is only needed for Encode and storage only for Build.
func NewIndexer(encoder *embedding.Encoder, store storage.Storage, indexType string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		encoder:   encoder,
		storage:   store,
		indexType: indexType,
		chunkSize: defaultChunkSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// EncodeResult summarizes an Encode run.
type EncodeResult struct {
	Documents  int
	Dimensions int
	Duration   time.Duration
}

// Encode reads the corpus at corpusPath, encodes every summary with the passage role and
// writes the vectors to vectorsPath and the metadata (with resolved ids) to metadataPath.
// Row i of the vector file belongs to entry i of the metadata file.
func (idx *Indexer) Encode(ctx context.Context, corpusPath, vectorsPath, metadataPath string) (*EncodeResult, error) {
	if idx.encoder == nil {
		return nil, fmt.Errorf("%w: indexer has no encoder", models.ErrEncoding)
	}
	start := time.Now()

	docs, err := corpus.ReadJSON(corpusPath)
	if err != nil {
		return nil, err
	}
	idx.logger.Info("encoding corpus", zap.String("path", corpusPath), zap.Int("documents", len(docs)))

	summaries := make([]string, len(docs))
	for i, d := range docs {
		summaries[i] = d.Summary
	}

	bar := idx.newBar(len(docs))
	rows := make([][]float32, 0, len(docs))
	for i := 0; i < len(summaries); i += idx.chunkSize {
		end := i + idx.chunkSize
		if end > len(summaries) {
			end = len(summaries)
		}
		vecs, err := idx.encoder.Encode(ctx, summaries[i:end], embedding.RolePassage)
		if err != nil {
			return nil, fmt.Errorf("encoding documents %d-%d: %w", i, end-1, err)
		}
		rows = append(rows, vecs...)
		if bar != nil {
			_ = bar.Add(end - i)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := matrix.Save(vectorsPath, rows); err != nil {
		return nil, fmt.Errorf("failed to write vectors: %w", err)
	}
	if err := corpus.WriteJSON(metadataPath, docs); err != nil {
		return nil, err
	}

	res := &EncodeResult{Documents: len(docs), Dimensions: idx.encoder.Dimensions(), Duration: time.Since(start)}
	idx.logger.Info("corpus encoded",
		zap.Int("documents", res.Documents),
		zap.Int("dimensions", res.Dimensions),
		zap.String("vectors", vectorsPath),
		zap.String("metadata", metadataPath),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (idx *Indexer) newBar(total int) *progressbar.ProgressBar {
	if idx.progress == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(idx.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Encoding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(idx.progress)
		}),
	)
}

// BuildInput names the files a build reads and writes.
// Dimensions is required for raw vector files and checked against .npy files when set.
type BuildInput struct {
	VectorsPath  string
	MetadataPath string
	IndexPath    string
	Dimensions   int
}

// BuildResult summarizes a Build run.
type BuildResult struct {
	Documents  int
	Dimensions int
	IndexType  string
	Duration   time.Duration
}

// Build loads the vector file and metadata, checks they have the same number of rows,
// builds the index and replaces the stored corpus. Both outputs come from the same ordered
// input, so index row i and document i always correspond. The index is written next to
// in.IndexPath and only moved into place once the corpus is committed; a failed build
// leaves the previous index and corpus untouched.
func (idx *Indexer) Build(ctx context.Context, in BuildInput) (*BuildResult, error) {
	if idx.storage == nil {
		return nil, fmt.Errorf("indexer has no corpus storage")
	}
	start := time.Now()

	rows, err := matrix.Load(in.VectorsPath, in.Dimensions)
	if err != nil {
		return nil, err
	}
	docs, err := corpus.ReadJSON(in.MetadataPath)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(docs) {
		return nil, fmt.Errorf("%w: %s has %d vectors, %s has %d entries",
			models.ErrCorpusMisaligned, in.VectorsPath, len(rows), in.MetadataPath, len(docs))
	}

	dims := in.Dimensions
	if len(rows) > 0 {
		if dims > 0 && len(rows[0]) != dims {
			return nil, fmt.Errorf("%w: vector file has %d dimensions, expected %d", models.ErrDimensionMismatch, len(rows[0]), dims)
		}
		dims = len(rows[0])
	}
	if dims <= 0 {
		return nil, fmt.Errorf("cannot build an index of unknown dimension from an empty vector file")
	}

	index, err := vector.Build(ctx, idx.indexType, dims, rows)
	if err != nil {
		return nil, err
	}
	defer index.Close()

	tmpPath := in.IndexPath + ".tmp"
	if err := index.Save(tmpPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to save index: %w", err)
	}
	info := storage.BuildInfo{Dimensions: dims, IndexType: index.Type(), BuiltAt: time.Now()}
	if err := idx.storage.ReplaceCorpus(ctx, docs, info); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to store corpus: %w", err)
	}
	if err := os.Rename(tmpPath, in.IndexPath); err != nil {
		return nil, fmt.Errorf("%w: corpus stored but index could not be moved into place: %v",
			models.ErrCorpusMisaligned, err)
	}

	res := &BuildResult{Documents: len(docs), Dimensions: dims, IndexType: index.Type(), Duration: time.Since(start)}
	idx.logger.Info("index built",
		zap.Int("documents", res.Documents),
		zap.Int("dimensions", res.Dimensions),
		zap.String("index_type", res.IndexType),
		zap.String("index", in.IndexPath),
		zap.Duration("duration", res.Duration))
	return res, nil
}
