package matrix

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadRaw decodes a headerless little-endian float32 file of rows with dims values each.
func ReadRaw(r io.Reader, dims int) ([][]float32, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: raw vector files need a positive dimension, got %d", ErrFormat, dims)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rowBytes := dims * 4
	if len(data)%rowBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-dim rows", ErrFormat, len(data), dims)
	}
	return readRows(bytes.NewReader(data), len(data)/rowBytes, dims)
}

// WriteRaw encodes rows as headerless little-endian float32.
func WriteRaw(w io.Writer, rows [][]float32) error {
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) != len(rows[0]) {
			return fmt.Errorf("%w: row %d has %d values, expected %d", ErrFormat, i, len(rows[i]), len(rows[0]))
		}
	}
	bw := bufio.NewWriter(w)
	if err := writeRows(bw, rows); err != nil {
		return err
	}
	return bw.Flush()
}

// Load reads a vector file, choosing the format by extension: .npy, anything else is raw.
// dims is only needed for raw files.
func Load(path string, dims int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat vector file: %w", err)
	}

	var rows [][]float32
	if strings.EqualFold(filepath.Ext(path), ".npy") {
		rows, err = readNPY(f, info.Size())
	} else {
		rows, err = ReadRaw(f, dims)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Save writes rows to path in the format implied by its extension.
func Save(path string, rows [][]float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create vector file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".npy") {
		err = WriteNPY(f, rows)
	} else {
		err = WriteRaw(f, rows)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
