// Package matrix reads and writes the row-major float32 vector files produced by the
// offline encoder: NumPy .npy arrays of shape [N, dim] and headerless raw float32 files.
package matrix

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ErrFormat is returned for malformed or unsupported vector files.
var ErrFormat = errors.New("invalid vector file")

// maxDims bounds the row width accepted from a file header.
const maxDims = 1 << 16

// ReadNPY decodes a 2-D little-endian float32 C-order .npy array (format versions 1 to 3).
func ReadNPY(r io.Reader) ([][]float32, error) {
	return readNPY(r, -1)
}

// readNPY is ReadNPY with the total input size known up front (size < 0 when unknown),
// so a header that declares more data than the input holds is rejected before allocating.
func readNPY(r io.Reader, size int64) ([][]float32, error) {
	br := bufio.NewReader(r)

	prefix := make([]byte, 8)
	if _, err := io.ReadFull(br, prefix); err != nil {
		return nil, fmt.Errorf("%w: reading npy preamble: %v", ErrFormat, err)
	}
	if !bytes.Equal(prefix[:6], npyMagic) {
		return nil, fmt.Errorf("%w: not an npy file", ErrFormat)
	}

	var headerLen, lenBytes int
	switch major := prefix[6]; major {
	case 1:
		lenBytes = 2
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: reading npy header length: %v", ErrFormat, err)
		}
		headerLen = int(n)
	case 2, 3:
		lenBytes = 4
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: reading npy header length: %v", ErrFormat, err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("%w: unsupported npy version %d", ErrFormat, major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: reading npy header: %v", ErrFormat, err)
	}
	rows, dims, err := parseHeader(string(header))
	if err != nil {
		return nil, err
	}
	if size >= 0 {
		payload := size - int64(len(prefix)+lenBytes+headerLen)
		if rows > 0 && int64(dims)*4 > payload/int64(rows) {
			return nil, fmt.Errorf("%w: header declares %dx%d floats but only %d payload bytes follow",
				ErrFormat, rows, dims, payload)
		}
	}
	return readRows(br, rows, dims)
}

func parseHeader(h string) (rows, dims int, err error) {
	m := descrRe.FindStringSubmatch(h)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: npy header has no descr", ErrFormat)
	}
	if m[1] != "<f4" {
		return 0, 0, fmt.Errorf("%w: unsupported dtype %q, want <f4", ErrFormat, m[1])
	}
	if m := fortranRe.FindStringSubmatch(h); m == nil || m[1] != "False" {
		return 0, 0, fmt.Errorf("%w: only C-order arrays are supported", ErrFormat)
	}
	m = shapeRe.FindStringSubmatch(h)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: npy header has no shape", ErrFormat)
	}
	var shape []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("%w: bad shape element %q", ErrFormat, part)
		}
		shape = append(shape, v)
	}
	if len(shape) != 2 {
		return 0, 0, fmt.Errorf("%w: expected 2-D array, got shape %v", ErrFormat, shape)
	}
	if shape[1] > maxDims {
		return 0, 0, fmt.Errorf("%w: row width %d exceeds %d", ErrFormat, shape[1], maxDims)
	}
	return shape[0], shape[1], nil
}

// WriteNPY encodes rows as a version 1.0 .npy array of shape [len(rows), dim].
// All rows must have the same length.
func WriteNPY(w io.Writer, rows [][]float32) error {
	dims := 0
	if len(rows) > 0 {
		dims = len(rows[0])
	}
	for i, row := range rows {
		if len(row) != dims {
			return fmt.Errorf("%w: row %d has %d values, expected %d", ErrFormat, i, len(row), dims)
		}
	}

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", len(rows), dims)
	// magic(6) + version(2) + length(2) + header + '\n' must be a multiple of 64
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	bw.WriteString(header)
	if err := writeRows(bw, rows); err != nil {
		return err
	}
	return bw.Flush()
}

func readRows(r io.Reader, rows, dims int) ([][]float32, error) {
	// rows comes from untrusted input; grow as data actually arrives
	out := make([][]float32, 0, min(rows, 1<<14))
	buf := make([]byte, dims*4)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: truncated payload at row %d: %v", ErrFormat, i, err)
		}
		row := make([]float32, dims)
		for d := range row {
			row[d] = math.Float32frombits(binary.LittleEndian.Uint32(buf[d*4:]))
		}
		out = append(out, row)
	}
	return out, nil
}

func writeRows(w io.Writer, rows [][]float32) error {
	for _, row := range rows {
		buf := make([]byte, len(row)*4)
		for d, v := range row {
			binary.LittleEndian.PutUint32(buf[d*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
