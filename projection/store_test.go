package projection

import (
	"errors"
	"reflect"
	"testing"

	"github.com/brunobiangulo/chartex/chart"
)

func seedCharts() []chart.Record {
	return []chart.Record{
		{
			ID:    1,
			Type:  chart.TypeBar,
			Title: "Revenue",
			Unit:  "USD",
			Data: []chart.Row{
				{Label: "Q1", Value: chart.Number(10)},
				{Label: "Q2", Value: chart.Number(20)},
			},
		},
		{
			ID:     2,
			Type:   chart.TypeGroupedBar,
			Title:  "Regions",
			Series: []string{"North", "South"},
			Data: []chart.Row{
				{Label: "2024", Values: map[string]chart.Scalar{
					"North": chart.Number(5),
					"South": chart.Number(6),
				}},
			},
		},
	}
}

func TestSeedAndCharts(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())

	charts, ok := s.Charts(1)
	if !ok {
		t.Fatal("page 1 should be seeded")
	}
	if !reflect.DeepEqual(charts, seedCharts()) {
		t.Errorf("charts = %+v", charts)
	}

	if _, ok := s.Charts(2); ok {
		t.Error("page 2 should not be seeded")
	}
}

func TestSeedCopiesInput(t *testing.T) {
	s := New()
	input := seedCharts()
	s.Seed(1, input)

	// Mutating the caller's slice must not reach the store.
	input[0].Title = "tampered"
	input[0].Data[0].Label = "tampered"
	input[1].Data[0].Values["North"] = chart.Number(999)

	charts, _ := s.Charts(1)
	if charts[0].Title != "Revenue" || charts[0].Data[0].Label != "Q1" {
		t.Error("store shares structure with the seed input")
	}
	if charts[1].Data[0].Values["North"] != chart.Number(5) {
		t.Error("store shares nested maps with the seed input")
	}
}

func TestUpdateValueSingleSeries(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())

	if err := s.UpdateValue(1, 0, 1, "", "42.5"); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}

	charts, _ := s.Charts(1)
	if got := charts[0].Data[1].Value; got != chart.Number(42.5) {
		t.Errorf("edited value = %+v, want 42.5", got)
	}
	// The sibling row is untouched.
	if got := charts[0].Data[0].Value; got != chart.Number(10) {
		t.Errorf("sibling value = %+v, want 10", got)
	}
}

func TestUpdateValueCoercion(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())

	tests := []struct {
		raw  string
		want chart.Scalar
	}{
		{"7", chart.Number(7)},
		{"n/a", chart.Text("n/a")},
		{"", chart.Scalar{}},
	}
	for _, tt := range tests {
		if err := s.UpdateValue(1, 0, 0, "", tt.raw); err != nil {
			t.Fatalf("UpdateValue(%q): %v", tt.raw, err)
		}
		charts, _ := s.Charts(1)
		if got := charts[0].Data[0].Value; got != tt.want {
			t.Errorf("UpdateValue(%q) stored %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestUpdateValueMultiSeries(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())

	if err := s.UpdateValue(1, 1, 0, "South", "99"); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}

	charts, _ := s.Charts(1)
	vals := charts[1].Data[0].Values
	if vals["South"] != chart.Number(99) {
		t.Errorf("South = %+v, want 99", vals["South"])
	}
	if vals["North"] != chart.Number(5) {
		t.Errorf("North = %+v, want untouched 5", vals["North"])
	}
}

func TestUpdateValueCreatesValuesMap(t *testing.T) {
	s := New()
	s.Seed(1, []chart.Record{{
		Series: []string{"A"},
		Data:   []chart.Row{{Label: "x"}},
	}})

	if err := s.UpdateValue(1, 0, 0, "A", "1"); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	charts, _ := s.Charts(1)
	if charts[0].Data[0].Values["A"] != chart.Number(1) {
		t.Errorf("values = %+v", charts[0].Data[0].Values)
	}
}

func TestUpdateLabelAndTitle(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())

	if err := s.UpdateLabel(1, 0, 0, "First Quarter"); err != nil {
		t.Fatalf("UpdateLabel: %v", err)
	}
	if err := s.UpdateTitle(1, 0, "Net Revenue"); err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}

	charts, _ := s.Charts(1)
	if charts[0].Data[0].Label != "First Quarter" {
		t.Errorf("label = %q", charts[0].Data[0].Label)
	}
	if charts[0].Title != "Net Revenue" {
		t.Errorf("title = %q", charts[0].Title)
	}
	// The row value next to the edited label survives.
	if charts[0].Data[0].Value != chart.Number(10) {
		t.Errorf("value = %+v, want 10", charts[0].Data[0].Value)
	}
}

func TestEditIsolation(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())
	s.Seed(2, seedCharts())

	before, _ := s.Charts(2)

	if err := s.UpdateValue(1, 0, 0, "", "777"); err != nil {
		t.Fatal(err)
	}

	after, _ := s.Charts(2)
	if !reflect.DeepEqual(before, after) {
		t.Error("an edit on page 1 leaked into page 2")
	}

	charts, _ := s.Charts(1)
	if !reflect.DeepEqual(charts[1], before[1]) {
		t.Error("an edit on chart 0 leaked into chart 1")
	}
}

func TestSnapshotStability(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())

	snap := s.AllCharts()
	if err := s.UpdateValue(1, 0, 0, "", "999"); err != nil {
		t.Fatal(err)
	}

	if snap[0].Data[0].Value != chart.Number(10) {
		t.Error("a later edit mutated a previously taken snapshot")
	}
}

func TestAllChartsPageOrder(t *testing.T) {
	s := New()
	s.Seed(3, []chart.Record{{Title: "page3"}})
	s.Seed(1, []chart.Record{{Title: "page1"}})
	s.Seed(2, []chart.Record{{Title: "page2a"}, {Title: "page2b"}})

	var titles []string
	for _, rec := range s.AllCharts() {
		titles = append(titles, rec.Title)
	}
	want := []string{"page1", "page2a", "page2b", "page3"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("order = %v, want %v", titles, want)
	}

	if got := s.Pages(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Pages() = %v", got)
	}
}

func TestReseedDiscardsEdits(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())
	if err := s.UpdateTitle(1, 0, "edited"); err != nil {
		t.Fatal(err)
	}

	s.Seed(1, seedCharts())
	charts, _ := s.Charts(1)
	if charts[0].Title != "Revenue" {
		t.Errorf("title = %q, want re-seeded original", charts[0].Title)
	}
}

func TestEditErrors(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unseeded page", s.UpdateLabel(9, 0, 0, "x"), ErrPageNotSeeded},
		{"chart out of range", s.UpdateLabel(1, 5, 0, "x"), ErrIndexOutOfRange},
		{"negative chart", s.UpdateLabel(1, -1, 0, "x"), ErrIndexOutOfRange},
		{"row out of range", s.UpdateLabel(1, 0, 9, "x"), ErrIndexOutOfRange},
		{"title unseeded page", s.UpdateTitle(9, 0, "x"), ErrPageNotSeeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("err = %v, want %v", tt.err, tt.want)
			}
		})
	}

	// Failed edits leave the store unchanged.
	charts, _ := s.Charts(1)
	if !reflect.DeepEqual(charts, seedCharts()) {
		t.Error("failed edits mutated the store")
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Seed(1, seedCharts())
	s.Clear()

	if _, ok := s.Charts(1); ok {
		t.Error("Clear should discard all pages")
	}
	if len(s.AllCharts()) != 0 {
		t.Error("AllCharts after Clear should be empty")
	}
}
