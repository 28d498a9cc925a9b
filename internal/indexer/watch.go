package indexer

import (
	"context"

	"github.com/hyperjump/revsearch/internal/watcher"
	"go.uber.org/zap"
)

// Watch builds once, then rebuilds whenever the vector file or the metadata file changes,
// until ctx is cancelled. Rebuild failures are logged and the previous outputs stay in place.
// A running server keeps the index it loaded at startup; rebuilt artifacts are picked up on restart.
func (idx *Indexer) Watch(ctx context.Context, in BuildInput, opts ...watcher.WatcherOption) error {
	if _, err := idx.Build(ctx, in); err != nil {
		return err
	}

	rebuilds := make(chan string, 1)
	onChange := func(path string) {
		select {
		case rebuilds <- path:
		default:
			// a rebuild is already queued
		}
	}
	w := watcher.NewWatcher([]string{in.VectorsPath, in.MetadataPath}, onChange,
		append([]watcher.WatcherOption{watcher.WithLogger(idx.logger)}, opts...)...)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	idx.logger.Info("watching build inputs", zap.String("vectors", in.VectorsPath), zap.String("metadata", in.MetadataPath))

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-rebuilds:
			idx.logger.Info("build input changed, rebuilding", zap.String("path", path))
			if _, err := idx.Build(ctx, in); err != nil {
				idx.logger.Error("rebuild failed", zap.Error(err))
			}
		}
	}
}
