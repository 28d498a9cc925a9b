package matrix

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNPY_RoundTrip(t *testing.T) {
	rows := [][]float32{{1, 0, 0.5}, {0, 1, -0.25}, {0.125, 0.5, 1}}
	var buf bytes.Buffer
	require.NoError(t, WriteNPY(&buf, rows))

	// header block must be 64-byte aligned
	hlen := binary.LittleEndian.Uint16(buf.Bytes()[8:10])
	assert.Equal(t, 0, (10+int(hlen))%64)

	got, err := ReadNPY(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestNPY_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNPY(&buf, nil))
	got, err := ReadNPY(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNPY_RaggedRows(t *testing.T) {
	err := WriteNPY(&bytes.Buffer{}, [][]float32{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrFormat)
}

func npyWithHeader(header string, payload []byte) []byte {
	var b bytes.Buffer
	b.Write(npyMagic)
	b.Write([]byte{1, 0})
	_ = binary.Write(&b, binary.LittleEndian, uint16(len(header)))
	b.WriteString(header)
	b.Write(payload)
	return b.Bytes()
}

func TestReadNPY_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not npy", []byte("hello world")},
		{"float64", npyWithHeader("{'descr': '<f8', 'fortran_order': False, 'shape': (1, 1), }\n", make([]byte, 8))},
		{"fortran order", npyWithHeader("{'descr': '<f4', 'fortran_order': True, 'shape': (1, 1), }\n", make([]byte, 4))},
		{"one dimensional", npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (3,), }\n", make([]byte, 12))},
		{"truncated", npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (2, 2), }\n", make([]byte, 12))},
		{"huge row count", npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (1000000000000, 768), }\n", make([]byte, 16))},
		{"huge row width", npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (1, 1000000000000), }\n", make([]byte, 16))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadNPY(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestRaw_RoundTrip(t *testing.T) {
	rows := [][]float32{{1, 2}, {3, 4}}
	var buf bytes.Buffer
	require.NoError(t, WriteRaw(&buf, rows))
	assert.Equal(t, 16, buf.Len())

	got, err := ReadRaw(&buf, 2)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestReadRaw_PartialRow(t *testing.T) {
	_, err := ReadRaw(bytes.NewReader(make([]byte, 12)), 2)
	assert.ErrorIs(t, err, ErrFormat)
	_, err = ReadRaw(bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestSaveLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	rows := [][]float32{{0.6, 0.8}, {1, 0}}

	for _, name := range []string{"embeddings.npy", "embeddings.f32"} {
		path := filepath.Join(dir, "out", name)
		require.NoError(t, Save(path, rows))
		got, err := Load(path, 2)
		require.NoError(t, err, name)
		assert.Equal(t, rows, got, name)
	}
}

func TestLoad_RejectsShapeLargerThanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.npy")
	data := npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (1000000000000, 768), }\n", make([]byte, 64))
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err := Load(path, 0)
	require.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "payload bytes")
}
