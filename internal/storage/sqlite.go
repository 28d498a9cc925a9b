package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/revsearch/internal/models"
)

// ErrNoBuild is returned by GetBuildInfo when no corpus has been written yet.
var ErrNoBuild = errors.New("no index build recorded")

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		ordinal INTEGER PRIMARY KEY,
		doc_id INTEGER NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS build_info (
		singleton INTEGER PRIMARY KEY CHECK (singleton = 1),
		dimensions INTEGER NOT NULL,
		index_type TEXT NOT NULL,
		documents INTEGER NOT NULL,
		built_at TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceCorpus deletes all documents and inserts docs in ordinal order in one transaction.
func (s *SQLiteStorage) ReplaceCorpus(ctx context.Context, docs []models.Document, info BuildInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (ordinal, doc_id, summary, url) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, doc := range docs {
		if _, err := stmt.ExecContext(ctx, i, doc.ID, doc.Summary, doc.URL); err != nil {
			return fmt.Errorf("failed to insert document %d: %w", i, err)
		}
	}

	if info.BuiltAt.IsZero() {
		info.BuiltAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO build_info (singleton, dimensions, index_type, documents, built_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(singleton) DO UPDATE SET
		   dimensions = excluded.dimensions,
		   index_type = excluded.index_type,
		   documents = excluded.documents,
		   built_at = excluded.built_at`,
		info.Dimensions, info.IndexType, len(docs), info.BuiltAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record build info: %w", err)
	}
	return tx.Commit()
}

// LoadCorpus returns all documents ordered by ordinal. Ordinals must run 0..n-1 without gaps.
func (s *SQLiteStorage) LoadCorpus(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ordinal, doc_id, summary, url FROM documents ORDER BY ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		var ordinal int
		var doc models.Document
		if err := rows.Scan(&ordinal, &doc.ID, &doc.Summary, &doc.URL); err != nil {
			return nil, err
		}
		if ordinal != len(docs) {
			return nil, fmt.Errorf("%w: expected ordinal %d, found %d", models.ErrCorpusMisaligned, len(docs), ordinal)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetDocument returns the document at ordinal.
func (s *SQLiteStorage) GetDocument(ctx context.Context, ordinal int) (models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_id, summary, url FROM documents WHERE ordinal = ?`, ordinal,
	).Scan(&doc.ID, &doc.Summary, &doc.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, fmt.Errorf("%w: %d", models.ErrIndexOutOfBounds, ordinal)
	}
	return doc, err
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// GetBuildInfo returns the metadata recorded by the last ReplaceCorpus.
func (s *SQLiteStorage) GetBuildInfo(ctx context.Context) (*BuildInfo, error) {
	var info BuildInfo
	err := s.db.QueryRowContext(ctx,
		`SELECT dimensions, index_type, documents, built_at FROM build_info WHERE singleton = 1`,
	).Scan(&info.Dimensions, &info.IndexType, &info.Documents, &info.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoBuild
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
