// Package chartex extracts tabular data from charts in uploaded
// documents. A document is converted to per-page images, each page is
// sent to a vision inference provider, the loosely-typed response is
// normalized into chart records, and the records are held in an
// editable projection that exports to xlsx, csv, or JSON.
package chartex

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/brunobiangulo/chartex/chart"
	"github.com/brunobiangulo/chartex/convert"
	"github.com/brunobiangulo/chartex/export"
	"github.com/brunobiangulo/chartex/llm"
	"github.com/brunobiangulo/chartex/projection"
	"github.com/brunobiangulo/chartex/store"
)

// DocumentInfo describes the currently loaded document.
type DocumentInfo struct {
	Filename   string `json:"filename"`
	Format     string `json:"format"`
	TotalPages int    `json:"total_pages"`
}

// Session is a single logical extraction session: one active document,
// its page images, the raw per-page extraction results, and the
// editable projection that feeds export. Loading a new document
// discards all prior state atomically.
type Session struct {
	cfg        Config
	vision     llm.Provider
	converters *convert.Registry
	store      *store.Store
	proj       *projection.Store

	mu          sync.Mutex
	gen         uint64 // bumped on every Load; stale extractions discard their result
	doc         DocumentInfo
	docID       int64
	pages       []convert.PageImage
	extractions map[int]chart.PageExtraction
	inflight    map[int]bool
}

// New creates a session from configuration.
func New(cfg Config) (*Session, error) {
	vision, err := llm.NewProvider(cfg.Vision)
	if err != nil {
		return nil, fmt.Errorf("creating vision provider: %w", err)
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return &Session{
		cfg:    cfg,
		vision: vision,
		converters: convert.NewRegistry(convert.Options{
			MaxPages:     cfg.Convert.MaxPages,
			MaxImageSide: cfg.Convert.MaxImageSide,
			JPEGQuality:  cfg.Convert.JPEGQuality,
			RenderScale:  cfg.Convert.RenderScale,
		}),
		store:       st,
		proj:        projection.New(),
		extractions: make(map[int]chart.PageExtraction),
		inflight:    make(map[int]bool),
	}, nil
}

// Close shuts down the session.
func (s *Session) Close() error {
	return s.store.Close()
}

// Converters returns the conversion registry so callers can add
// formats.
func (s *Session) Converters() *convert.Registry {
	return s.converters
}

// Store returns the bookkeeping store for diagnostic access.
func (s *Session) Store() *store.Store {
	return s.store
}

// Load converts the document at path into page images and replaces all
// session state with it. On conversion failure the previous document
// remains loaded.
func (s *Session) Load(ctx context.Context, path string) (DocumentInfo, error) {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return s.load(ctx, path, filepath.Base(path), format)
}

// LoadReader spools r to a temporary file and loads it like Load. The
// extension of name selects the converter; name itself is kept as the
// document's display filename.
func (s *Session) LoadReader(ctx context.Context, name string, r io.Reader) (DocumentInfo, error) {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, err := s.converters.Get(format); err != nil {
		return DocumentInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	tmp, err := os.CreateTemp("", "chartex-*."+format)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("spooling upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return DocumentInfo{}, fmt.Errorf("spooling upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return DocumentInfo{}, fmt.Errorf("spooling upload: %w", err)
	}

	return s.load(ctx, tmp.Name(), filepath.Base(name), format)
}

func (s *Session) load(ctx context.Context, path, filename, format string) (DocumentInfo, error) {
	conv, err := s.converters.Get(format)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	start := time.Now()
	pages, err := conv.Convert(ctx, path)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("converting document: %w", err)
	}
	if len(pages) == 0 {
		return DocumentInfo{}, fmt.Errorf("converting document: no pages produced")
	}

	doc := DocumentInfo{Filename: filename, Format: format, TotalPages: len(pages)}

	// Bookkeeping only; a store failure must not block the session.
	docID, err := s.store.InsertDocument(ctx, store.Document{
		Filename:    filename,
		Format:      format,
		ContentHash: fileHash(path),
		PageCount:   len(pages),
		Status:      "loaded",
	})
	if err != nil {
		slog.Warn("load: recording document failed", "file", filename, "error", err)
	}

	// The projection is cleared in the same critical section that bumps
	// the generation, so no reader can observe the new document with
	// the old document's charts.
	s.mu.Lock()
	s.gen++
	s.doc = doc
	s.docID = docID
	s.pages = pages
	s.extractions = make(map[int]chart.PageExtraction)
	s.inflight = make(map[int]bool)
	s.proj.Clear()
	s.mu.Unlock()

	slog.Info("load: document ready",
		"file", filename, "format", format, "pages", len(pages),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return doc, nil
}

// Document returns the currently loaded document, if any.
func (s *Session) Document() (DocumentInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, len(s.pages) > 0
}

// Pages returns the page images of the loaded document.
func (s *Session) Pages() []convert.PageImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]convert.PageImage(nil), s.pages...)
}

// Page returns the last extraction result for a page, if the page has
// been extracted during the current document's lifetime.
func (s *Session) Page(page int) (chart.PageExtraction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pe, ok := s.extractions[page]
	return pe, ok
}

// ExtractPage sends one page image to the vision provider and replaces
// that page's charts in the projection with the normalized result. At
// most one extraction per page runs at a time; a second request while
// one is outstanding fails with ErrExtractionInFlight. On provider
// failure the page's previous result is left untouched.
func (s *Session) ExtractPage(ctx context.Context, page int) (chart.PageExtraction, error) {
	s.mu.Lock()
	if len(s.pages) == 0 {
		s.mu.Unlock()
		return chart.PageExtraction{}, ErrNoDocument
	}
	img, ok := s.pageImage(page)
	if !ok {
		s.mu.Unlock()
		return chart.PageExtraction{}, fmt.Errorf("%w: %d", ErrPageNotFound, page)
	}
	if img.Placeholder || len(img.Data) == 0 {
		s.mu.Unlock()
		return chart.PageExtraction{}, fmt.Errorf("%w: %d", ErrNoPageImage, page)
	}
	if s.inflight[page] {
		s.mu.Unlock()
		return chart.PageExtraction{}, fmt.Errorf("%w: %d", ErrExtractionInFlight, page)
	}
	s.inflight[page] = true
	gen := s.gen
	docID := s.docID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.gen == gen {
			delete(s.inflight, page)
		}
		s.mu.Unlock()
	}()

	start := time.Now()
	text, err := s.callVision(ctx, img)
	elapsed := time.Since(start)
	if err != nil {
		s.logExtraction(docID, page, elapsed, chart.PageExtraction{}, err)
		return chart.PageExtraction{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	pe := chart.ParseResponse(text)

	// The generation check and the projection seed share one critical
	// section; seeding outside it would let a concurrent Load slip its
	// Clear between check and seed.
	s.mu.Lock()
	stale := s.gen != gen
	if !stale {
		s.extractions[page] = pe
		s.proj.Seed(page, pe.Charts)
	}
	s.mu.Unlock()
	if stale {
		// A new document was loaded while inference ran; the result
		// belongs to the old session and is dropped.
		slog.Info("extract: discarding stale result", "page", page)
		return chart.PageExtraction{}, ErrNoDocument
	}

	s.logExtraction(docID, page, elapsed, pe, nil)
	slog.Info("extract: page complete",
		"page", page, "has_charts", pe.HasCharts, "charts", len(pe.Charts),
		"confidence", pe.Confidence, "elapsed", elapsed.Round(time.Millisecond))
	return pe, nil
}

// Extracting reports whether an extraction is currently in flight for
// the page.
func (s *Session) Extracting(page int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[page]
}

// UpdateLabel replaces one row's label on an extracted page.
func (s *Session) UpdateLabel(page, chartIdx, rowIdx int, label string) error {
	return s.proj.UpdateLabel(page, chartIdx, rowIdx, label)
}

// UpdateValue sets one cell from raw user input; see projection.Store.
func (s *Session) UpdateValue(page, chartIdx, rowIdx int, series, raw string) error {
	return s.proj.UpdateValue(page, chartIdx, rowIdx, series, raw)
}

// UpdateTitle replaces one chart's title.
func (s *Session) UpdateTitle(page, chartIdx int, title string) error {
	return s.proj.UpdateTitle(page, chartIdx, title)
}

// Charts returns the current editable charts for a page.
func (s *Session) Charts(page int) ([]chart.Record, bool) {
	return s.proj.Charts(page)
}

// Export serializes a point-in-time snapshot of every edited chart
// across all pages.
func (s *Session) Export(format export.Format, stem string) (*export.Result, error) {
	return export.Export(s.proj.AllCharts(), format, stem)
}

// ImportCharts re-seeds one page of the projection from a structured
// (JSON) export, replacing that page's current charts and edits.
func (s *Session) ImportCharts(page int, data []byte) error {
	charts, err := export.ImportJSON(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pages) == 0 {
		return ErrNoDocument
	}
	if _, ok := s.pageImage(page); !ok {
		return fmt.Errorf("%w: %d", ErrPageNotFound, page)
	}
	s.proj.Seed(page, charts)
	return nil
}

// pageImage finds a page by its 1-based number. Callers hold s.mu.
func (s *Session) pageImage(page int) (convert.PageImage, bool) {
	for _, img := range s.pages {
		if img.Page == page {
			return img, true
		}
	}
	return convert.PageImage{}, false
}

// callVision sends the page image with the extraction prompt and
// returns the raw response text.
func (s *Session) callVision(ctx context.Context, img convert.PageImage) (string, error) {
	dataURL := "data:" + img.MediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)

	resp, err := s.vision.ChatWithImages(ctx, llm.VisionChatRequest{
		Messages: []llm.VisionMessage{
			{
				Role: "user",
				Content: []llm.ContentPart{
					{Type: "image_url", ImageURL: &llm.ImageURL{URL: dataURL}},
					{Type: "text", Text: extractionPrompt},
				},
			},
		},
		MaxTokens: 8192,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// logExtraction records an extraction attempt; store failures are
// logged but never surfaced.
func (s *Session) logExtraction(docID int64, page int, elapsed time.Duration, pe chart.PageExtraction, extractErr error) {
	run := store.ExtractionRun{
		DocumentID: docID,
		Page:       page,
		Status:     "ok",
		HasCharts:  pe.HasCharts,
		Confidence: pe.Confidence,
		ChartCount: len(pe.Charts),
		Model:      s.cfg.Vision.Model,
		ElapsedMs:  elapsed.Milliseconds(),
	}
	if extractErr != nil {
		run.Status = "error"
		run.Error = extractErr.Error()
	}
	if err := s.store.LogExtraction(context.Background(), run); err != nil {
		slog.Warn("extract: recording run failed", "page", page, "error", err)
	}
}

// fileHash computes the SHA-256 hash of a file's content. Returns ""
// when the file cannot be read; the hash is bookkeeping, not identity.
func fileHash(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
