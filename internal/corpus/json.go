package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hyperjump/revsearch/internal/models"
)

// record is one entry of a metadata or corpus JSON file. ID is optional.
type record struct {
	ID      *int64 `json:"id,omitempty"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

// DecodeJSON reads a JSON array of {id, summary, url} objects. A missing id becomes the
// entry's position; missing strings become "".
func DecodeJSON(r io.Reader) ([]models.Document, error) {
	var recs []record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("failed to parse corpus JSON: %w", err)
	}
	docs := make([]models.Document, len(recs))
	for i, rec := range recs {
		id := int64(i)
		if rec.ID != nil {
			id = *rec.ID
		}
		docs[i] = models.Document{ID: id, Summary: rec.Summary, URL: rec.URL}
	}
	return docs, nil
}

// ReadJSON reads documents from a JSON file.
func ReadJSON(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()
	docs, err := DecodeJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// LoadJSON reads a metadata file into a Store.
func LoadJSON(path string) (*Store, error) {
	docs, err := ReadJSON(path)
	if err != nil {
		return nil, err
	}
	return New(docs), nil
}

// WriteJSON writes documents as an indented JSON array with explicit ids.
func WriteJSON(path string, docs []models.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal corpus: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write corpus file: %w", err)
	}
	return nil
}
