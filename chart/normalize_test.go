package chart

import (
	"reflect"
	"testing"
)

func TestParseResponseCleanJSON(t *testing.T) {
	pe := ParseResponse(`{"has_charts": true, "confidence": 0.9, "charts": [
		{"type": "bar", "title": "T", "data": [{"label": "A", "value": 1}]}
	]}`)

	if !pe.HasCharts {
		t.Error("expected has_charts true")
	}
	if pe.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", pe.Confidence)
	}
	if len(pe.Charts) != 1 {
		t.Fatalf("charts = %d, want 1", len(pe.Charts))
	}
	if pe.Charts[0].Type != TypeBar || pe.Charts[0].Title != "T" {
		t.Errorf("chart = %+v", pe.Charts[0])
	}
}

func TestParseResponseStripsFences(t *testing.T) {
	inputs := []string{
		"```json\n{\"has_charts\": true, \"charts\": []}\n```",
		"```\n{\"has_charts\": true, \"charts\": []}\n```",
	}
	for _, in := range inputs {
		pe := ParseResponse(in)
		if !pe.HasCharts {
			t.Errorf("fenced input not parsed: %q", in)
		}
	}
}

func TestParseResponseSalvagesBraceBlock(t *testing.T) {
	pe := ParseResponse(`Here is the extraction you asked for:
{"has_charts": true, "confidence": 0.5, "charts": []}
Let me know if you need anything else.`)
	if !pe.HasCharts || pe.Confidence != 0.5 {
		t.Errorf("salvage failed: %+v", pe)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	pe := ParseResponse("I could not find any charts on this page.")
	if pe.HasCharts {
		t.Error("garbage input should yield has_charts false")
	}
	if pe.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", pe.Confidence)
	}
	if pe.Charts == nil || len(pe.Charts) != 0 {
		t.Errorf("charts = %v, want empty non-nil slice", pe.Charts)
	}
}

func TestNormalizeDefensiveDefaults(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want PageExtraction
	}{
		{
			"nil input",
			nil,
			PageExtraction{Charts: []Record{}},
		},
		{
			"wrong field types",
			map[string]any{"has_charts": "yes", "confidence": "high", "charts": "none"},
			PageExtraction{Charts: []Record{}},
		},
		{
			"confidence clamped above",
			map[string]any{"confidence": 3.0},
			PageExtraction{Confidence: 1, Charts: []Record{}},
		},
		{
			"confidence clamped below",
			map[string]any{"confidence": -1.0},
			PageExtraction{Charts: []Record{}},
		},
		{
			"numeric confidence string accepted",
			map[string]any{"confidence": "0.7"},
			PageExtraction{Confidence: 0.7, Charts: []Record{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeDropsMalformedCharts(t *testing.T) {
	pe := Normalize(map[string]any{
		"has_charts": true,
		"charts": []any{
			"not an object",
			map[string]any{"type": "pie", "data": "not a list"},
			map[string]any{"type": "bar", "data": []any{
				map[string]any{"label": "A", "value": 1.0},
			}},
		},
	})

	if len(pe.Charts) != 1 {
		t.Fatalf("charts = %d, want 1 (malformed entries dropped)", len(pe.Charts))
	}
	if pe.Charts[0].Type != TypeBar {
		t.Errorf("surviving chart = %+v", pe.Charts[0])
	}
}

func TestNormalizeRows(t *testing.T) {
	pe := Normalize(map[string]any{
		"charts": []any{
			map[string]any{
				"type":   "grouped_bar",
				"series": []any{"2023", 2024.0},
				"data": []any{
					map[string]any{"label": "A", "values": map[string]any{"2023": 1.0, "2024": "n/a"}},
					"bogus row",
					map[string]any{"label": "B"},
					map[string]any{"label": "C", "value": nil},
				},
			},
		},
	})

	if len(pe.Charts) != 1 {
		t.Fatalf("charts = %d, want 1", len(pe.Charts))
	}
	rec := pe.Charts[0]

	// Numeric series names keep their column.
	if !reflect.DeepEqual(rec.Series, []string{"2023", "2024"}) {
		t.Errorf("series = %v", rec.Series)
	}

	// Non-object rows dropped, rows without values tolerated as empty.
	if len(rec.Data) != 3 {
		t.Fatalf("rows = %d, want 3", len(rec.Data))
	}
	if rec.Data[0].Values["2024"] != Text("n/a") {
		t.Errorf("residual text lost: %+v", rec.Data[0].Values)
	}
	if !rec.Data[1].Value.IsEmpty() {
		t.Errorf("row without value should be empty, got %+v", rec.Data[1].Value)
	}
	if !rec.Data[2].Value.IsEmpty() {
		t.Errorf("null value should be empty, got %+v", rec.Data[2].Value)
	}
}

func TestNormalizePreservesOrder(t *testing.T) {
	pe := Normalize(map[string]any{
		"charts": []any{
			map[string]any{"title": "first"},
			map[string]any{"title": "second"},
			map[string]any{"title": "third"},
		},
	})

	got := []string{pe.Charts[0].Title, pe.Charts[1].Title, pe.Charts[2].Title}
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestNormalizeUnknownTypePreserved(t *testing.T) {
	pe := Normalize(map[string]any{
		"charts": []any{map[string]any{"type": "waterfall"}},
	})
	if pe.Charts[0].Type != Type("waterfall") {
		t.Errorf("type = %q, want waterfall kept verbatim", pe.Charts[0].Type)
	}
	if pe.Charts[0].Type.Known() {
		t.Error("waterfall should be unrecognized")
	}
}
