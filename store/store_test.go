//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("") // in-memory
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDoc() Document {
	return Document{
		Filename:    "report.pdf",
		Format:      "pdf",
		ContentHash: "abc123",
		PageCount:   4,
		Status:      "loaded",
	}
}

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestInsertAndListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.InsertDocument(ctx, sampleDoc())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	second := sampleDoc()
	second.Filename = "deck.pptx"
	second.Format = "pptx"
	id2, err := s.InsertDocument(ctx, second)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("ids not increasing: %d then %d", id1, id2)
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %d, want 2", len(docs))
	}
	// Newest first.
	if docs[0].Filename != "deck.pptx" || docs[1].Filename != "report.pdf" {
		t.Errorf("order = %q, %q", docs[0].Filename, docs[1].Filename)
	}
	if docs[0].CreatedAt == "" {
		t.Error("created_at should be populated")
	}
}

func TestCurrentDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CurrentDocument(ctx); err == nil {
		t.Error("expected error with no documents")
	}

	if _, err := s.InsertDocument(ctx, sampleDoc()); err != nil {
		t.Fatal(err)
	}
	latest := sampleDoc()
	latest.Filename = "latest.png"
	id, err := s.InsertDocument(ctx, latest)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := s.CurrentDocument(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if doc.ID != id || doc.Filename != "latest.png" {
		t.Errorf("current = %+v", doc)
	}
}

func TestUpdateDocumentStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertDocument(ctx, sampleDoc())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateDocumentStatus(ctx, id, "extracted"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	doc, err := s.CurrentDocument(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != "extracted" {
		t.Errorf("status = %q, want extracted", doc.Status)
	}
}

func TestExtractionHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docID, err := s.InsertDocument(ctx, sampleDoc())
	if err != nil {
		t.Fatal(err)
	}

	runs := []ExtractionRun{
		{DocumentID: docID, Page: 1, Status: "error", Model: "m", Error: "timeout", ElapsedMs: 1200},
		{DocumentID: docID, Page: 1, Status: "ok", HasCharts: true, Confidence: 0.8, ChartCount: 2, Model: "m", ElapsedMs: 900},
		{DocumentID: docID, Page: 2, Status: "ok", Model: "m"},
	}
	for _, r := range runs {
		if err := s.LogExtraction(ctx, r); err != nil {
			t.Fatalf("log: %v", err)
		}
	}

	history, err := s.ExtractionHistory(ctx, docID, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d, want 2", len(history))
	}
	// Oldest first.
	if history[0].Status != "error" || history[0].Error != "timeout" {
		t.Errorf("first run = %+v", history[0])
	}
	if !history[1].HasCharts || history[1].ChartCount != 2 || history[1].Confidence != 0.8 {
		t.Errorf("second run = %+v", history[1])
	}

	empty, err := s.ExtractionHistory(ctx, docID, 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("history for unextracted page = %d runs", len(empty))
	}
}
