// Package projection holds the live, user-editable copy of extracted
// chart data, keyed by page. It is the single source of truth for
// export; the raw per-page extraction results are kept elsewhere for
// display metadata only.
package projection

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/brunobiangulo/chartex/chart"
	"github.com/tiendc/go-deepcopy"
)

var (
	// ErrPageNotSeeded is returned when an edit targets a page that was
	// never seeded.
	ErrPageNotSeeded = errors.New("projection: page not seeded")

	// ErrIndexOutOfRange is returned when an edit targets a chart or row
	// index that does not exist. The store is left unchanged.
	ErrIndexOutOfRange = errors.New("projection: index out of range")
)

// Store maintains per-page chart sequences and applies localized edits.
// Mutations are copy-on-write along the path from page to the touched
// row, so an edit is never observable through any other chart or page
// and a previously taken snapshot keeps its values.
type Store struct {
	mu    sync.RWMutex
	pages map[int][]chart.Record
}

// New returns an empty store.
func New() *Store {
	return &Store{pages: make(map[int][]chart.Record)}
}

// Seed replaces the page's entire chart sequence with a deep copy of
// charts. Other pages are unaffected. Re-seeding a page discards its
// previous edits.
func (s *Store) Seed(page int, charts []chart.Record) {
	cp := cloneRecords(charts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[page] = cp
}

// Clear discards all pages. Called when a new document is loaded.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = make(map[int][]chart.Record)
}

// Pages returns the seeded page indices in ascending order.
func (s *Store) Pages() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := make([]int, 0, len(s.pages))
	for p := range s.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Charts returns a deep copy of the page's current chart sequence and
// whether the page has been seeded.
func (s *Store) Charts(page int) ([]chart.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	charts, ok := s.pages[page]
	if !ok {
		return nil, false
	}
	return cloneRecords(charts), true
}

// AllCharts returns a point-in-time snapshot of every chart across all
// pages, in ascending page order with each page's charts in stored
// order. This is the exact input to export; edits issued after the call
// do not alter the returned slice.
func (s *Store) AllCharts() []chart.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pages := make([]int, 0, len(s.pages))
	for p := range s.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	var all []chart.Record
	for _, p := range pages {
		all = append(all, cloneRecords(s.pages[p])...)
	}
	return all
}

// UpdateLabel replaces exactly one row's label.
func (s *Store) UpdateLabel(page, chartIdx, rowIdx int, label string) error {
	return s.mutateRow(page, chartIdx, rowIdx, func(r *chart.Row) {
		r.Label = label
	})
}

// UpdateValue sets one cell from raw user input. An empty series key
// targets the row's scalar value; otherwise values[series] is set,
// creating the map if absent. Empty input is stored as the explicit
// empty value (distinct from zero); anything else is parsed as a number
// or kept as text unchanged.
func (s *Store) UpdateValue(page, chartIdx, rowIdx int, series, raw string) error {
	v := chart.ParseScalar(raw)
	return s.mutateRow(page, chartIdx, rowIdx, func(r *chart.Row) {
		if series == "" {
			r.Value = v
			return
		}
		if r.Values == nil {
			r.Values = make(map[string]chart.Scalar, 1)
		}
		r.Values[series] = v
	})
}

// UpdateTitle replaces one chart's title.
func (s *Store) UpdateTitle(page, chartIdx int, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	charts, err := s.chartsFor(page, chartIdx)
	if err != nil {
		return err
	}

	next := make([]chart.Record, len(charts))
	copy(next, charts)
	next[chartIdx].Title = title
	s.pages[page] = next
	return nil
}

// mutateRow clones the path from the page slice down to the addressed
// row, applies fn to the clone, and swaps the new page slice in. Out of
// range indices leave the store untouched.
func (s *Store) mutateRow(page, chartIdx, rowIdx int, fn func(*chart.Row)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	charts, err := s.chartsFor(page, chartIdx)
	if err != nil {
		return err
	}

	rec := charts[chartIdx]
	if rowIdx < 0 || rowIdx >= len(rec.Data) {
		return fmt.Errorf("%w: page %d chart %d row %d", ErrIndexOutOfRange, page, chartIdx, rowIdx)
	}

	rows := make([]chart.Row, len(rec.Data))
	copy(rows, rec.Data)
	row := rows[rowIdx]
	if row.Values != nil {
		vals := make(map[string]chart.Scalar, len(row.Values))
		for k, v := range row.Values {
			vals[k] = v
		}
		row.Values = vals
	}

	fn(&row)
	rows[rowIdx] = row
	rec.Data = rows

	next := make([]chart.Record, len(charts))
	copy(next, charts)
	next[chartIdx] = rec
	s.pages[page] = next
	return nil
}

// chartsFor validates the page and chart index. Callers hold s.mu.
func (s *Store) chartsFor(page, chartIdx int) ([]chart.Record, error) {
	charts, ok := s.pages[page]
	if !ok {
		return nil, fmt.Errorf("%w: page %d", ErrPageNotSeeded, page)
	}
	if chartIdx < 0 || chartIdx >= len(charts) {
		return nil, fmt.Errorf("%w: page %d chart %d", ErrIndexOutOfRange, page, chartIdx)
	}
	return charts, nil
}

// cloneRecords deep-copies a chart sequence so seeded state never shares
// nested structure with the caller's slice.
func cloneRecords(charts []chart.Record) []chart.Record {
	cp := make([]chart.Record, 0, len(charts))
	if err := deepcopy.Copy(&cp, charts); err != nil {
		// Identical types cannot fail to copy; fall back to a manual
		// clone so the invariant holds regardless.
		cp = cp[:0]
		for _, rec := range charts {
			rows := make([]chart.Row, len(rec.Data))
			copy(rows, rec.Data)
			for i, row := range rows {
				if row.Values != nil {
					vals := make(map[string]chart.Scalar, len(row.Values))
					for k, v := range row.Values {
						vals[k] = v
					}
					rows[i].Values = vals
				}
			}
			rec.Data = rows
			rec.Series = append([]string(nil), rec.Series...)
			cp = append(cp, rec)
		}
	}
	return cp
}
