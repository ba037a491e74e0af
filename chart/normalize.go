package chart

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
)

var (
	fenceOpen  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
	braceBlock = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseResponse converts the raw text of an inference response into a
// PageExtraction. Markdown code fences are stripped, and if the text is
// not valid JSON the outermost brace block is salvaged. Unparseable
// responses yield the safe zero result (no charts, confidence 0) rather
// than an error.
func ParseResponse(text string) PageExtraction {
	cleaned := fenceClose.ReplaceAllString(fenceOpen.ReplaceAllString(text, ""), "")

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		salvaged := braceBlock.FindString(cleaned)
		if salvaged == "" || json.Unmarshal([]byte(salvaged), &raw) != nil {
			slog.Warn("chart: inference response is not valid JSON", "length", len(text))
			return PageExtraction{Charts: []Record{}}
		}
	}
	return Normalize(raw)
}

// Normalize converts a loosely-typed inference object into a valid
// PageExtraction. Input is untrusted: every field has a defensive
// default, malformed chart entries are dropped individually (partial
// success over total failure), and the original ordering of charts,
// rows, and series is preserved. Normalize never panics.
func Normalize(raw map[string]any) PageExtraction {
	pe := PageExtraction{Charts: []Record{}}
	if raw == nil {
		return pe
	}

	pe.HasCharts, _ = raw["has_charts"].(bool)
	if c, ok := toFloat(raw["confidence"]); ok {
		pe.Confidence = clamp01(c)
	}

	entries, _ := raw["charts"].([]any)
	for i, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			slog.Debug("chart: dropping non-object chart entry", "index", i)
			continue
		}
		rec, ok := normalizeRecord(obj)
		if !ok {
			slog.Debug("chart: dropping malformed chart entry", "index", i)
			continue
		}
		pe.Charts = append(pe.Charts, rec)
	}
	return pe
}

// normalizeRecord normalizes a single chart object. It returns false
// only when the entry is malformed beyond repair ("data" present but
// not a sequence).
func normalizeRecord(obj map[string]any) (Record, bool) {
	rec := Record{
		Title: stringField(obj["title"]),
		Unit:  stringField(obj["unit"]),
		Type:  Type(stringField(obj["type"])),
	}
	if id, ok := toFloat(obj["id"]); ok {
		rec.ID = int(id)
	}

	if s, present := obj["series"]; present {
		if list, ok := s.([]any); ok {
			for _, name := range list {
				rec.Series = append(rec.Series, stringify(name))
			}
		}
	}

	rows, present := obj["data"]
	if present {
		list, ok := rows.([]any)
		if !ok {
			return Record{}, false
		}
		for _, r := range list {
			row, ok := normalizeRow(r)
			if !ok {
				continue
			}
			rec.Data = append(rec.Data, row)
		}
	}
	return rec, true
}

func normalizeRow(v any) (Row, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Row{}, false
	}

	row := Row{Label: stringField(obj["label"])}
	if vals, ok := obj["values"].(map[string]any); ok {
		row.Values = make(map[string]Scalar, len(vals))
		for k, rv := range vals {
			row.Values[k] = scalarFromAny(rv)
		}
		return row, true
	}
	if raw, present := obj["value"]; present {
		row.Value = scalarFromAny(raw)
	}
	return row, true
}

// stringField returns v as a string, or "" if it is not one.
func stringField(v any) string {
	s, _ := v.(string)
	return s
}

// stringify renders any value as a display string. Used for series
// names, where a numeric entry ("2024") still has to keep its column.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
