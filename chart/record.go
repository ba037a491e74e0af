// Package chart defines the canonical in-memory representation of one
// extracted chart and the normalization of untrusted inference output
// into that representation.
package chart

import (
	"encoding/json"
	"strings"
	"unicode"
)

// Type is the chart-type taxonomy. It behaves as an open enumeration:
// values outside the known set are preserved verbatim and rendered with
// a fallback label, never rejected.
type Type string

const (
	TypeBar                  Type = "bar"
	TypeHorizontalBar        Type = "horizontal_bar"
	TypeStackedBar           Type = "stacked_bar"
	TypeStackedHorizontalBar Type = "stacked_horizontal_bar"
	TypeGroupedBar           Type = "grouped_bar"
	TypePie                  Type = "pie"
	TypeDonut                Type = "donut"
	TypeLine                 Type = "line"
	TypeArea                 Type = "area"
	TypeScatter              Type = "scatter"
)

var knownTypes = map[Type]bool{
	TypeBar: true, TypeHorizontalBar: true, TypeStackedBar: true,
	TypeStackedHorizontalBar: true, TypeGroupedBar: true, TypePie: true,
	TypeDonut: true, TypeLine: true, TypeArea: true, TypeScatter: true,
}

// Known reports whether t is one of the recognized chart types.
func (t Type) Known() bool {
	return knownTypes[t]
}

// Label returns a human-readable display label for any type value,
// including unrecognized ones ("stacked_bar" -> "Stacked Bar").
func (t Type) Label() string {
	s := string(t)
	if s == "" {
		s = "unknown"
	}
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Record is one detected chart. ID is unique within a single extraction
// response only. An empty Series means the chart is single-series and
// each row carries a scalar Value; a non-empty Series means each row
// carries a Values map keyed by series name. Series order defines column
// order on export.
type Record struct {
	ID     int      `json:"id"`
	Type   Type     `json:"type"`
	Title  string   `json:"title,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	Series []string `json:"series,omitempty"`
	Data   []Row    `json:"data"`
}

// SingleSeries reports whether the record is in single-series mode.
func (r Record) SingleSeries() bool {
	return len(r.Series) == 0
}

// Row is one data point of a chart. Exactly one of Value (single-series)
// or Values (multi-series) is meaningful; a nil Values map selects the
// scalar form. Rows that don't match their chart's series mode are
// tolerated and surface as blanks rather than errors.
type Row struct {
	Label  string
	Value  Scalar
	Values map[string]Scalar
}

// MarshalJSON emits either the "value" or the "values" form, matching
// the wire shape of the inference response.
func (r Row) MarshalJSON() ([]byte, error) {
	if r.Values != nil {
		return json.Marshal(struct {
			Label  string            `json:"label"`
			Values map[string]Scalar `json:"values"`
		}{r.Label, r.Values})
	}
	return json.Marshal(struct {
		Label string `json:"label"`
		Value Scalar `json:"value"`
	}{r.Label, r.Value})
}

// UnmarshalJSON accepts both row forms. A missing label defaults to "".
func (r *Row) UnmarshalJSON(data []byte) error {
	var aux struct {
		Label  string            `json:"label"`
		Value  *Scalar           `json:"value"`
		Values map[string]Scalar `json:"values"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Label = aux.Label
	r.Values = aux.Values
	if aux.Value != nil {
		r.Value = *aux.Value
	} else {
		r.Value = Scalar{}
	}
	return nil
}

// PageExtraction is the normalized result of one inference call for one
// page image. It is retained for display metadata (detection flag,
// confidence); the editable projection, not this struct, is the source
// of truth for export.
type PageExtraction struct {
	HasCharts  bool     `json:"has_charts"`
	Confidence float64  `json:"confidence"`
	Charts     []Record `json:"charts"`
}
