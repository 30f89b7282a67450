// Package dataset builds per-season feature datasets, merges them into a
// corpus and persists both as CSV.
package dataset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/albapepper/scoracle-predict/internal/features"
)

var (
	// ErrSchemaMismatch is returned when datasets with different columns
	// are merged.
	ErrSchemaMismatch = errors.New("dataset schema mismatch")
)

// Dataset is an ordered set of feature rows sharing one header.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []features.Row
}

// New returns an empty dataset with the labeled or unlabeled header.
func New(name string, labeled bool) *Dataset {
	return &Dataset{Name: name, Columns: features.Columns(labeled)}
}

// Append adds rows, rejecting any whose width disagrees with the header.
func (d *Dataset) Append(rows ...features.Row) error {
	for _, r := range rows {
		width := features.UnlabeledWidth
		if r.Labeled() {
			width = features.LabeledWidth
		}
		if width != len(d.Columns) {
			return fmt.Errorf("%s: row %s vs %s has %d columns, dataset has %d: %w",
				d.Name, r.Home, r.Away, width, len(d.Columns), ErrSchemaMismatch)
		}
	}
	d.Rows = append(d.Rows, rows...)
	return nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Merge concatenates datasets in the given order (oldest season first).
// Every input must share the first input's columns.
func Merge(name string, parts ...*Dataset) (*Dataset, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("merge %s: no datasets", name)
	}

	out := &Dataset{Name: name, Columns: slices.Clone(parts[0].Columns)}
	total := 0
	for _, p := range parts {
		total += len(p.Rows)
	}
	out.Rows = make([]features.Row, 0, total)

	for _, p := range parts {
		if !slices.Equal(p.Columns, out.Columns) {
			return nil, fmt.Errorf("merge %s: %s has %d columns, %s has %d: %w",
				name, p.Name, len(p.Columns), parts[0].Name, len(out.Columns), ErrSchemaMismatch)
		}
		out.Rows = append(out.Rows, p.Rows...)
	}
	return out, nil
}
