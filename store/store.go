// Package store records session bookkeeping (loaded documents and
// extraction runs) in SQLite. The default database is in-memory, so
// nothing outlives the process unless a file path is configured.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Document represents a row in the documents table.
type Document struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash"`
	PageCount   int    `json:"page_count"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// ExtractionRun represents one inference attempt for one page.
type ExtractionRun struct {
	ID         int64   `json:"id"`
	DocumentID int64   `json:"document_id"`
	Page       int     `json:"page"`
	Status     string  `json:"status"` // "ok" or "error"
	HasCharts  bool    `json:"has_charts"`
	Confidence float64 `json:"confidence"`
	ChartCount int     `json:"chart_count"`
	Model      string  `json:"model"`
	Error      string  `json:"error,omitempty"`
	ElapsedMs  int64   `json:"elapsed_ms"`
	CreatedAt  string  `json:"created_at"`
}

// Store wraps the SQLite database for session bookkeeping.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema. An empty path opens an in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// An in-memory database exists per connection; keep a single one.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InsertDocument records a newly loaded document and returns its ID.
func (s *Store) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (filename, format, content_hash, page_count, status)
		VALUES (?, ?, ?, ?, ?)
	`, doc.Filename, doc.Format, doc.ContentHash, doc.PageCount, doc.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateDocumentStatus updates a document's status field.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ? WHERE id = ?", status, id)
	return err
}

// CurrentDocument returns the most recently loaded document.
func (s *Store) CurrentDocument(ctx context.Context) (Document, error) {
	var d Document
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, format, content_hash, page_count, status, created_at
		FROM documents ORDER BY id DESC LIMIT 1
	`)
	err := row.Scan(&d.ID, &d.Filename, &d.Format, &d.ContentHash, &d.PageCount, &d.Status, &d.CreatedAt)
	if err != nil {
		return Document{}, err
	}
	return d, nil
}

// ListDocuments returns every document loaded during the session,
// newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, format, content_hash, page_count, status, created_at
		FROM documents ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.Format, &d.ContentHash,
			&d.PageCount, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// LogExtraction records one extraction attempt.
func (s *Store) LogExtraction(ctx context.Context, run ExtractionRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_runs
			(document_id, page, status, has_charts, confidence, chart_count, model, error, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.DocumentID, run.Page, run.Status, run.HasCharts, run.Confidence,
		run.ChartCount, run.Model, run.Error, run.ElapsedMs)
	return err
}

// ExtractionHistory returns the extraction attempts for one page of a
// document, oldest first.
func (s *Store) ExtractionHistory(ctx context.Context, documentID int64, page int) ([]ExtractionRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, page, status, has_charts, confidence, chart_count, model, error, elapsed_ms, created_at
		FROM extraction_runs
		WHERE document_id = ? AND page = ?
		ORDER BY id ASC
	`, documentID, page)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ExtractionRun
	for rows.Next() {
		var r ExtractionRun
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Page, &r.Status, &r.HasCharts,
			&r.Confidence, &r.ChartCount, &r.Model, &r.Error, &r.ElapsedMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
