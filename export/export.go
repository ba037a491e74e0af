// Package export serializes the aggregated chart set into the three
// download formats: spreadsheet (xlsx), delimited text (csv), and
// structured JSON. Output is deterministic for identical input.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/brunobiangulo/chartex/chart"
)

// Format selects a target encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var (
	// ErrNoCharts is returned when an export is requested with zero
	// charts. Surfaced to the user instead of emitting an empty file.
	ErrNoCharts = errors.New("export: no charts to export")

	// ErrUnknownFormat is returned for an unrecognized format selector.
	ErrUnknownFormat = errors.New("export: unknown format")
)

// ParseFormat parses a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q (use xlsx, csv, or json)", ErrUnknownFormat, s)
	}
}

// Result is a produced download: the raw bytes, the suggested filename
// (sanitized stem plus extension), and the MIME type.
type Result struct {
	Data     []byte
	Filename string
	MIMEType string
}

var stemSanitizer = regexp.MustCompile(`[^\w\-]`)

// Export serializes charts into the given format. The stem is sanitized
// for use as a filename; an empty or fully-stripped stem falls back to
// "chart_data".
func Export(charts []chart.Record, format Format, stem string) (*Result, error) {
	if len(charts) == 0 {
		return nil, ErrNoCharts
	}

	name := stemSanitizer.ReplaceAllString(stem, "_")
	if name == "" || strings.Trim(name, "_") == "" {
		name = "chart_data"
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(charts, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding JSON export: %w", err)
		}
		return &Result{Data: data, Filename: name + ".json", MIMEType: "application/json"}, nil

	case FormatCSV:
		data, err := writeCSV(charts)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: name + ".csv", MIMEType: "text/csv"}, nil

	case FormatXLSX:
		data, err := writeXLSX(charts)
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:     data,
			Filename: name + ".xlsx",
			MIMEType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ImportJSON decodes a structured export back into chart records, so a
// previously exported document can re-seed the editable projection.
// Accepts either the bare chart array or an object wrapping it under
// "charts". Input that decodes to zero charts is rejected rather than
// allowed to silently wipe a page.
func ImportJSON(data []byte) ([]chart.Record, error) {
	var charts []chart.Record
	if err := json.Unmarshal(data, &charts); err != nil {
		var wrapped struct {
			Charts []chart.Record `json:"charts"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decoding chart JSON: %w", err)
		}
		charts = wrapped.Charts
	}
	if len(charts) == 0 {
		return nil, fmt.Errorf("decoding chart JSON: no charts found")
	}
	return charts, nil
}

// chartTitle returns the display title for the i-th chart, numbering
// untitled charts.
func chartTitle(rec chart.Record, i int) string {
	if rec.Title != "" {
		return rec.Title
	}
	return fmt.Sprintf("Chart %d", i+1)
}

// chartType returns the raw type string with an "unknown" fallback.
func chartType(rec chart.Record) string {
	if rec.Type == "" {
		return "unknown"
	}
	return string(rec.Type)
}

// headerRow builds the column header for one chart: the series names
// for multi-series charts, or a single value column (annotated with the
// unit when present) for single-series ones.
func headerRow(rec chart.Record) []string {
	if !rec.SingleSeries() {
		return append([]string{"Category"}, rec.Series...)
	}
	label := "Value"
	if rec.Unit != "" {
		label = fmt.Sprintf("Value (%s)", rec.Unit)
	}
	return []string{"Category", label}
}

// rowScalars flattens one data row into cells following the header
// layout. Multi-series rows emit values in series order with the
// explicit empty value for missing keys.
func rowScalars(rec chart.Record, row chart.Row) []chart.Scalar {
	if !rec.SingleSeries() {
		cells := make([]chart.Scalar, 0, len(rec.Series))
		for _, s := range rec.Series {
			cells = append(cells, row.Values[s])
		}
		return cells
	}
	return []chart.Scalar{row.Value}
}
