package export

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/brunobiangulo/chartex/chart"
	"github.com/xuri/excelize/v2"
)

var sheetNameSanitizer = regexp.MustCompile(`[\\/*?:\[\]]`)

// safeSheetName returns a unique, Excel-safe sheet name (31 char limit,
// forbidden characters replaced, numeric suffix on collision).
func safeSheetName(name string, existing map[string]bool) string {
	base := sheetNameSanitizer.ReplaceAllString(name, "_")
	if utf8.RuneCountInString(base) > 28 {
		base = string([]rune(base)[:28])
	}
	if base == "" {
		base = "Chart"
	}

	candidate := base
	for suffix := 1; existing[candidate]; suffix++ {
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
	existing[candidate] = true
	return candidate
}

// writeXLSX emits one sheet per chart: a three-row metadata block, a
// styled header row, then the data rows, with column widths fitted to
// the content.
func writeXLSX(charts []chart.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 10},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1E3A5F"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	metaStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "374151", Size: 9},
	})
	if err != nil {
		return nil, fmt.Errorf("creating metadata style: %w", err)
	}

	existing := make(map[string]bool)
	for i, rec := range charts {
		sheet := safeSheetName(chartTitle(rec, i), existing)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("creating sheet %q: %w", sheet, err)
		}
		if err := writeChartSheet(f, sheet, rec, i, headerStyle, metaStyle); err != nil {
			return nil, err
		}
	}

	// Drop the default sheet now that the chart sheets exist.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeChartSheet(f *excelize.File, sheet string, rec chart.Record, i, headerStyle, metaStyle int) error {
	meta := [][2]any{
		{"Chart", chartTitle(rec, i)},
		{"Type", rec.Type.Label()},
		{"Unit", rec.Unit},
	}
	for r, kv := range meta {
		keyCell, _ := excelize.CoordinatesToCellName(1, r+1)
		valCell, _ := excelize.CoordinatesToCellName(2, r+1)
		if err := f.SetCellValue(sheet, keyCell, kv[0]); err != nil {
			return fmt.Errorf("writing metadata on %q: %w", sheet, err)
		}
		if err := f.SetCellValue(sheet, valCell, kv[1]); err != nil {
			return fmt.Errorf("writing metadata on %q: %w", sheet, err)
		}
		if err := f.SetCellStyle(sheet, keyCell, keyCell, metaStyle); err != nil {
			return fmt.Errorf("styling metadata on %q: %w", sheet, err)
		}
	}

	// Header on row 5, data from row 6. Row 4 stays blank.
	const headerRowNum = 5
	headers := headerRow(rec)
	widths := make([]int, len(headers))
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRowNum)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("writing header on %q: %w", sheet, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("styling header on %q: %w", sheet, err)
		}
		widths[col] = len(h)
	}

	for r, row := range rec.Data {
		cells := make([]any, 0, len(headers))
		cells = append(cells, row.Label)
		for _, s := range rowScalars(rec, row) {
			cells = append(cells, s.Value())
		}
		for col, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(col+1, headerRowNum+1+r)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing row on %q: %w", sheet, err)
			}
			if col < len(widths) {
				if w := len(fmt.Sprint(v)); w > widths[col] {
					widths[col] = w
				}
			}
		}
	}

	for col, w := range widths {
		name, _ := excelize.ColumnNumberToName(col + 1)
		width := float64(w + 3)
		if width > 60 {
			width = 60
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("sizing columns on %q: %w", sheet, err)
		}
	}
	return nil
}
