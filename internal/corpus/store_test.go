package corpus

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/revsearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sized int

func (s sized) Size() int { return int(s) }

func TestStore_Get(t *testing.T) {
	s := New([]models.Document{
		{ID: 1, Summary: "A", URL: "u1"},
		{ID: 2, Summary: "B", URL: "u2"},
	})
	require.Equal(t, 2, s.Len())

	doc, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, models.Document{ID: 2, Summary: "B", URL: "u2"}, doc)

	for _, ord := range []int{-1, 2, 100} {
		_, err := s.Get(ord)
		assert.ErrorIs(t, err, models.ErrIndexOutOfBounds, "ordinal %d", ord)
	}
}

func TestStore_IsImmutable(t *testing.T) {
	input := []models.Document{{ID: 1, Summary: "A"}}
	s := New(input)
	input[0].Summary = "changed"

	docs := s.Documents()
	docs[0].Summary = "changed too"

	doc, _ := s.Get(0)
	assert.Equal(t, "A", doc.Summary)
}

func TestVerify(t *testing.T) {
	s := New(make([]models.Document, 3))
	assert.NoError(t, Verify(s, sized(3)))
	assert.ErrorIs(t, Verify(s, sized(4)), models.ErrCorpusMisaligned)
	assert.NoError(t, Verify(New(nil), sized(0)))
}

func TestDecodeJSON_Defaults(t *testing.T) {
	docs, err := DecodeJSON(strings.NewReader(`[
		{"id": 42, "summary": "A", "url": "https://example.com/a"},
		{"summary": "B"},
		{"url": "https://example.com/c"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []models.Document{
		{ID: 42, Summary: "A", URL: "https://example.com/a"},
		{ID: 1, Summary: "B", URL: ""},
		{ID: 2, Summary: "", URL: "https://example.com/c"},
	}, docs)
}

func TestDecodeJSON_Invalid(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"summary": "not an array"}`))
	assert.Error(t, err)
}

func TestWriteAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "metadata.json")
	docs := []models.Document{{ID: 0, Summary: "Пожары", URL: "u"}, {ID: 7, Summary: "B"}}
	require.NoError(t, WriteJSON(path, docs))

	s, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, docs, s.Documents())
}

func TestLoadJSON_Missing(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
