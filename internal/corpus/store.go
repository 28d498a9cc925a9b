// Package corpus holds the read-only, ordinal-addressed document table that pairs with a vector index.
package corpus

import (
	"fmt"

	"github.com/hyperjump/revsearch/internal/models"
)

// Store is an immutable corpus: Get(i) is the document for index row i.
// It is safe for concurrent use because nothing mutates it after New.
type Store struct {
	docs []models.Document
}

// New creates a store over a private copy of docs.
func New(docs []models.Document) *Store {
	cp := make([]models.Document, len(docs))
	copy(cp, docs)
	return &Store{docs: cp}
}

// Get returns the document at ordinal.
func (s *Store) Get(ordinal int) (models.Document, error) {
	if ordinal < 0 || ordinal >= len(s.docs) {
		return models.Document{}, fmt.Errorf("%w: ordinal %d, corpus has %d documents", models.ErrIndexOutOfBounds, ordinal, len(s.docs))
	}
	return s.docs[ordinal], nil
}

// Len returns the number of documents.
func (s *Store) Len() int {
	return len(s.docs)
}

// Documents returns a copy of all documents in ordinal order.
func (s *Store) Documents() []models.Document {
	cp := make([]models.Document, len(s.docs))
	copy(cp, s.docs)
	return cp
}

// Sized is anything that reports a row count, such as a vector index.
type Sized interface {
	Size() int
}

// Verify checks that the store and index describe the same rows.
func Verify(s *Store, index Sized) error {
	if s.Len() != index.Size() {
		return fmt.Errorf("%w: corpus has %d documents, index has %d vectors", models.ErrCorpusMisaligned, s.Len(), index.Size())
	}
	return nil
}
