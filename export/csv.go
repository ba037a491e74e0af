package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/brunobiangulo/chartex/chart"
)

// utf8BOM keeps Excel happy when it opens the CSV directly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// writeCSV concatenates all charts into one flat table. Each chart is
// introduced by a metadata row and its own header, and consecutive
// charts are separated by a blank row so data rows are never ambiguous
// about which chart they belong to.
func writeCSV(charts []chart.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)

	for i, rec := range charts {
		if i > 0 {
			if err := w.Write([]string{""}); err != nil {
				return nil, fmt.Errorf("writing CSV separator: %w", err)
			}
		}

		meta := []string{
			"Chart: " + chartTitle(rec, i),
			"Type: " + chartType(rec),
			"Unit: " + rec.Unit,
		}
		if err := w.Write(meta); err != nil {
			return nil, fmt.Errorf("writing CSV metadata: %w", err)
		}
		if err := w.Write([]string{""}); err != nil {
			return nil, err
		}
		if err := w.Write(headerRow(rec)); err != nil {
			return nil, fmt.Errorf("writing CSV header: %w", err)
		}

		for _, row := range rec.Data {
			cells := []string{row.Label}
			for _, s := range rowScalars(rec, row) {
				cells = append(cells, s.String())
			}
			if err := w.Write(cells); err != nil {
				return nil, fmt.Errorf("writing CSV row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV: %w", err)
	}
	return buf.Bytes(), nil
}
