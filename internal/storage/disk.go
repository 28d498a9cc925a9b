package storage

import (
	"os"
	"path/filepath"
)

// DatabaseFiles returns the SQLite database path and its WAL and shared-memory sidecars.
func DatabaseFiles(dbPath string) []string {
	if dbPath == "" {
		return nil
	}
	return []string{dbPath, dbPath + "-wal", dbPath + "-shm"}
}

// ArtifactUsageBytes sums the index file and the corpus database including its sidecars.
func ArtifactUsageBytes(indexPath, dbPath string) (int64, error) {
	return DiskUsageBytes(append([]string{indexPath}, DatabaseFiles(dbPath)...)...)
}

// DiskUsageBytes returns the total size in bytes of the given paths. A directory counts
// its files recursively. Missing and empty paths are skipped and a path listed twice
// is counted once.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" || seen[filepath.Clean(p)] {
			continue
		}
		seen[filepath.Clean(p)] = true

		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.Walk(p, func(_ string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				total += fi.Size()
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
