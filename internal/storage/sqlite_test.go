package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/revsearch/internal/models"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "corpus.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_ReplaceAndLoad(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	docs := []models.Document{
		{ID: 10, Summary: "Лесные пожары в Сибири", URL: "https://example.com/a"},
		{ID: 11, Summary: "B", URL: ""},
		{ID: 12, Summary: "", URL: "https://example.com/c"},
	}
	if err := store.ReplaceCorpus(ctx, docs, BuildInfo{Dimensions: 768, IndexType: "flat"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadCorpus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(docs) {
		t.Fatalf("loaded %d docs, want %d", len(got), len(docs))
	}
	for i := range docs {
		if got[i] != docs[i] {
			t.Errorf("doc %d = %+v, want %+v", i, got[i], docs[i])
		}
	}

	doc, err := store.GetDocument(ctx, 1)
	if err != nil || doc.ID != 11 {
		t.Errorf("GetDocument(1) = %+v, %v", doc, err)
	}
	if _, err := store.GetDocument(ctx, 3); !errors.Is(err, models.ErrIndexOutOfBounds) {
		t.Errorf("expected ErrIndexOutOfBounds, got %v", err)
	}

	n, err := store.CountDocuments(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountDocuments = %d, %v", n, err)
	}
}

func TestSQLiteStorage_ReplaceOverwrites(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	_ = store.ReplaceCorpus(ctx, []models.Document{{ID: 1}, {ID: 2}, {ID: 3}}, BuildInfo{Dimensions: 2, IndexType: "flat"})
	if err := store.ReplaceCorpus(ctx, []models.Document{{ID: 9, Summary: "only"}}, BuildInfo{Dimensions: 4, IndexType: "faiss"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadCorpus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 9 {
		t.Errorf("got %+v", got)
	}

	info, err := store.GetBuildInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Dimensions != 4 || info.IndexType != "faiss" || info.Documents != 1 {
		t.Errorf("build info = %+v", info)
	}
	if time.Since(info.BuiltAt) > time.Minute {
		t.Errorf("BuiltAt not set: %v", info.BuiltAt)
	}
}

func TestSQLiteStorage_EmptyCorpus(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	if _, err := store.GetBuildInfo(ctx); !errors.Is(err, ErrNoBuild) {
		t.Errorf("expected ErrNoBuild, got %v", err)
	}
	docs, err := store.LoadCorpus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("expected empty corpus, got %d", len(docs))
	}
}

func TestSQLiteStorage_DetectsGaps(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()
	_ = store.ReplaceCorpus(ctx, []models.Document{{ID: 1}, {ID: 2}, {ID: 3}}, BuildInfo{Dimensions: 2, IndexType: "flat"})
	if _, err := store.db.Exec(`DELETE FROM documents WHERE ordinal = 1`); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadCorpus(ctx); !errors.Is(err, models.ErrCorpusMisaligned) {
		t.Errorf("expected ErrCorpusMisaligned, got %v", err)
	}
}
