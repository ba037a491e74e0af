package export

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/chartex/chart"
)

func sampleCharts() []chart.Record {
	return []chart.Record{
		{
			ID:    1,
			Type:  chart.TypeBar,
			Title: "Quarterly Revenue",
			Unit:  "USD",
			Data: []chart.Row{
				{Label: "Q1", Value: chart.Number(10.5)},
				{Label: "Q2", Value: chart.Text("n/a")},
				{Label: "Q3", Value: chart.Scalar{}},
			},
		},
		{
			ID:     2,
			Type:   chart.TypeGroupedBar,
			Title:  "By Region",
			Series: []string{"North", "South"},
			Data: []chart.Row{
				{Label: "2024", Values: map[string]chart.Scalar{
					"North": chart.Number(5),
					// South intentionally missing.
				}},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"xlsx", FormatXLSX, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("ParseFormat(%q) err = %v, want ErrUnknownFormat", tt.in, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportEmpty(t *testing.T) {
	for _, format := range []Format{FormatXLSX, FormatCSV, FormatJSON} {
		if _, err := Export(nil, format, "x"); !errors.Is(err, ErrNoCharts) {
			t.Errorf("Export(empty, %s) err = %v, want ErrNoCharts", format, err)
		}
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		stem string
		want string
	}{
		{"report", "report.json"},
		{"Q3 report (final).pdf", "Q3_report__final__pdf.json"},
		{"", "chart_data.json"},
		{"///", "chart_data.json"},
	}
	for _, tt := range tests {
		res, err := Export(sampleCharts(), FormatJSON, tt.stem)
		if err != nil {
			t.Fatalf("Export(%q): %v", tt.stem, err)
		}
		if res.Filename != tt.want {
			t.Errorf("filename for %q = %q, want %q", tt.stem, res.Filename, tt.want)
		}
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	charts := sampleCharts()
	res, err := Export(charts, FormatJSON, "x")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.MIMEType != "application/json" {
		t.Errorf("mime = %q", res.MIMEType)
	}

	back, err := ImportJSON(res.Data)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if !reflect.DeepEqual(back, charts) {
		t.Errorf("round trip = %+v, want %+v", back, charts)
	}
}

func TestImportJSONWrapped(t *testing.T) {
	body := []byte(`{"charts": [{"id": 1, "type": "pie", "data": [{"label": "A", "value": 3}]}]}`)
	charts, err := ImportJSON(body)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if len(charts) != 1 || charts[0].Type != chart.TypePie {
		t.Errorf("charts = %+v", charts)
	}

	if _, err := ImportJSON([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestImportJSONRejectsEmpty(t *testing.T) {
	// Well-formed JSON that carries no charts must not import as an
	// empty set, or re-seeding would wipe a page.
	for _, body := range []string{`{}`, `[]`, `{"charts": []}`, `{"pages": 3}`} {
		if _, err := ImportJSON([]byte(body)); err == nil {
			t.Errorf("ImportJSON(%s): expected error", body)
		}
	}
}

func TestExportDeterministic(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatJSON} {
		a, err := Export(sampleCharts(), format, "x")
		if err != nil {
			t.Fatalf("Export(%s): %v", format, err)
		}
		b, err := Export(sampleCharts(), format, "x")
		if err != nil {
			t.Fatalf("Export(%s): %v", format, err)
		}
		if !bytes.Equal(a.Data, b.Data) {
			t.Errorf("%s export is not deterministic", format)
		}
	}
}

func TestExportCSV(t *testing.T) {
	res, err := Export(sampleCharts(), FormatCSV, "x")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if !bytes.HasPrefix(res.Data, utf8BOM) {
		t.Error("CSV should start with a UTF-8 BOM")
	}

	text := string(bytes.TrimPrefix(res.Data, utf8BOM))
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	want := []string{
		"Chart: Quarterly Revenue,Type: bar,Unit: USD",
		"Category,Value (USD)",
		"Q1,10.5",
		"Q2,n/a",
		"Q3,",
		"",
		"Chart: By Region,Type: grouped_bar,Unit: ",
		"Category,North,South",
		"2024,5,",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("CSV lines = %q, want %q", lines, want)
	}
}

func TestExportXLSX(t *testing.T) {
	res, err := Export(sampleCharts(), FormatXLSX, "x")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("opening produced workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Quarterly Revenue", "By Region"}
	if !reflect.DeepEqual(sheets, want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}

	checks := []struct {
		sheet, cell, want string
	}{
		{"Quarterly Revenue", "A1", "Chart"},
		{"Quarterly Revenue", "B1", "Quarterly Revenue"},
		{"Quarterly Revenue", "B2", "Bar"},
		{"Quarterly Revenue", "B3", "USD"},
		{"Quarterly Revenue", "A5", "Category"},
		{"Quarterly Revenue", "B5", "Value (USD)"},
		{"Quarterly Revenue", "A6", "Q1"},
		{"Quarterly Revenue", "B6", "10.5"},
		{"Quarterly Revenue", "B7", "n/a"},
		{"Quarterly Revenue", "B8", ""},
		{"By Region", "B5", "North"},
		{"By Region", "C5", "South"},
		{"By Region", "B6", "5"},
		{"By Region", "C6", ""},
	}
	for _, c := range checks {
		got, err := f.GetCellValue(c.sheet, c.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s!%s): %v", c.sheet, c.cell, err)
		}
		if got != c.want {
			t.Errorf("%s!%s = %q, want %q", c.sheet, c.cell, got, c.want)
		}
	}
}

func TestSafeSheetName(t *testing.T) {
	existing := make(map[string]bool)

	tests := []struct {
		in   string
		want string
	}{
		{"Revenue / Costs: 2024", "Revenue _ Costs_ 2024"},
		{"Revenue / Costs: 2024", "Revenue _ Costs_ 2024_1"},
		{strings.Repeat("x", 40), strings.Repeat("x", 28)},
		{strings.Repeat("x", 40), strings.Repeat("x", 28) + "_1"},
	}
	for _, tt := range tests {
		if got := safeSheetName(tt.in, existing); got != tt.want {
			t.Errorf("safeSheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportUntitledCharts(t *testing.T) {
	charts := []chart.Record{
		{Data: []chart.Row{{Label: "a", Value: chart.Number(1)}}},
		{Data: []chart.Row{{Label: "b", Value: chart.Number(2)}}},
	}
	res, err := Export(charts, FormatXLSX, "x")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Chart 1", "Chart 2"}
	if !reflect.DeepEqual(sheets, want) {
		t.Errorf("sheets = %v, want %v", sheets, want)
	}
}
