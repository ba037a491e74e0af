package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brunobiangulo/chartex"
	"github.com/brunobiangulo/chartex/export"
	"github.com/brunobiangulo/chartex/projection"
)

type handler struct {
	session *chartex.Session
}

func newHandler(s *chartex.Session) *handler {
	return &handler{session: s}
}

// POST /api/upload
// Accepts a multipart file upload, converts it to page images, and
// makes it the active document.
func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(100 << 20); err != nil { // 100MB max
		writeError(w, http.StatusBadRequest, "expected multipart upload with 'file'")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	doc, err := h.session.LoadReader(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, chartex.ErrUnsupportedFormat) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "conversion failed")
		slog.Error("upload error", "file", header.Filename, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// GET /api/pages
// Returns the converted page images of the active document, base64
// encoded for direct display.
func (h *handler) handlePages(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.session.Document()
	if !ok {
		writeError(w, http.StatusNotFound, "no document loaded")
		return
	}

	type pageInfo struct {
		Page        int    `json:"page"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		Placeholder bool   `json:"placeholder"`
		MediaType   string `json:"media_type,omitempty"`
		Image       string `json:"image,omitempty"`
		Extracting  bool   `json:"extracting"`
	}

	pages := h.session.Pages()
	out := make([]pageInfo, 0, len(pages))
	for _, p := range pages {
		info := pageInfo{
			Page:        p.Page,
			Width:       p.Width,
			Height:      p.Height,
			Placeholder: p.Placeholder,
			MediaType:   p.MediaType,
			Extracting:  h.session.Extracting(p.Page),
		}
		if len(p.Data) > 0 {
			info.Image = base64.StdEncoding.EncodeToString(p.Data)
		}
		out = append(out, info)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document": doc,
		"pages":    out,
	})
}

// POST /api/extract
func (h *handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Page < 1 {
		writeError(w, http.StatusBadRequest, "page must be >= 1")
		return
	}

	start := time.Now()
	pe, err := h.session.ExtractPage(r.Context(), req.Page)
	if err != nil {
		switch {
		case errors.Is(err, chartex.ErrNoDocument):
			writeError(w, http.StatusBadRequest, "no document loaded")
		case errors.Is(err, chartex.ErrPageNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, chartex.ErrNoPageImage):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, chartex.ErrExtractionInFlight):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusBadGateway, "extraction failed")
			slog.Error("extract error", "page", req.Page, "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":       req.Page,
		"has_charts": pe.HasCharts,
		"confidence": pe.Confidence,
		"charts":     pe.Charts,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}

// POST /api/edit
// Applies a single cell, label, or title edit to one chart.
func (h *handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page   int    `json:"page"`
		Chart  int    `json:"chart"`
		Row    int    `json:"row"`
		Field  string `json:"field"`
		Series string `json:"series,omitempty"`
		Value  string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var err error
	switch req.Field {
	case "label":
		err = h.session.UpdateLabel(req.Page, req.Chart, req.Row, req.Value)
	case "value":
		err = h.session.UpdateValue(req.Page, req.Chart, req.Row, req.Series, req.Value)
	case "title":
		err = h.session.UpdateTitle(req.Page, req.Chart, req.Value)
	default:
		writeError(w, http.StatusBadRequest, "field must be label, value, or title")
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, projection.ErrPageNotSeeded):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, projection.ErrIndexOutOfRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "edit failed")
			slog.Error("edit error", "page", req.Page, "error", err)
		}
		return
	}

	charts, _ := h.session.Charts(req.Page)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":   req.Page,
		"charts": charts,
	})
}

// POST /api/import
// Re-seeds one page from a previously exported JSON document.
func (h *handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page   int             `json:"page"`
		Charts json.RawMessage `json:"charts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Charts) == 0 {
		writeError(w, http.StatusBadRequest, "charts is required")
		return
	}

	if err := h.session.ImportCharts(req.Page, req.Charts); err != nil {
		switch {
		case errors.Is(err, chartex.ErrNoDocument):
			writeError(w, http.StatusBadRequest, "no document loaded")
		case errors.Is(err, chartex.ErrPageNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	charts, _ := h.session.Charts(req.Page)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":   req.Page,
		"charts": charts,
	})
}

// GET /api/export?format=xlsx&name=quarterly
func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.session.Export(format, r.URL.Query().Get("name"))
	if err != nil {
		if errors.Is(err, export.ErrNoCharts) {
			writeError(w, http.StatusBadRequest, "no chart data to export")
			return
		}
		writeError(w, http.StatusInternalServerError, "export failed")
		slog.Error("export error", "format", format, "error", err)
		return
	}

	w.Header().Set("Content-Type", res.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
