package features

import (
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"

	"github.com/albapepper/scoracle-predict/internal/matchup"
	"github.com/albapepper/scoracle-predict/internal/provider"
)

// Profile holds one team's statistics in StatFields order.
type Profile [NumStats]float64

// Get returns the value for a stat key.
func (p Profile) Get(key string) (float64, bool) {
	for i, f := range StatFields {
		if f.Key == key {
			return p[i], true
		}
	}
	return 0, false
}

// Row is one contest with both sides' season-to-date profiles.
type Row struct {
	Date      civil.Date
	Home      string
	Away      string
	HomeStats Profile
	AwayStats Profile
	Outcome   matchup.Outcome
}

// Labeled reports whether the row carries a result.
func (r Row) Labeled() bool { return r.Outcome.Known() }

// Label returns 1 for a home win and 0 for an away win. ok is false for
// unplayed contests.
func (r Row) Label() (label int, ok bool) {
	switch r.Outcome {
	case matchup.HomeWin:
		return 1, true
	case matchup.AwayWin:
		return 0, true
	default:
		return 0, false
	}
}

// Features returns the classifier input vector.
func (r Row) Features() []float64 {
	out := make([]float64, 0, NumFeatures)
	out = append(out, r.HomeStats[:]...)
	return append(out, r.AwayStats[:]...)
}

// Values renders the row in Columns(r.Labeled()) order.
func (r Row) Values() []string {
	out := make([]string, 0, LabeledWidth)
	out = append(out, r.Home, r.Away)
	for _, v := range r.Features() {
		out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
	}
	if label, ok := r.Label(); ok {
		out = append(out, strconv.Itoa(label))
	}
	return append(out, provider.FormatDate(r.Date))
}

// ParseRow reverses Values. The record width selects labeled or unlabeled
// layout.
func ParseRow(record []string) (Row, error) {
	var labeled bool
	switch len(record) {
	case LabeledWidth:
		labeled = true
	case UnlabeledWidth:
	default:
		return Row{}, fmt.Errorf("row has %d columns, want %d or %d", len(record), UnlabeledWidth, LabeledWidth)
	}

	r := Row{Home: record[0], Away: record[1]}
	for i := 0; i < NumFeatures; i++ {
		v, err := strconv.ParseFloat(record[2+i], 64)
		if err != nil {
			return Row{}, fmt.Errorf("column %d: %w", 2+i, err)
		}
		if i < NumStats {
			r.HomeStats[i] = v
		} else {
			r.AwayStats[i-NumStats] = v
		}
	}

	next := 2 + NumFeatures
	if labeled {
		switch record[next] {
		case "1":
			r.Outcome = matchup.HomeWin
		case "0":
			r.Outcome = matchup.AwayWin
		default:
			return Row{}, fmt.Errorf("invalid result %q", record[next])
		}
		next++
	}

	d, err := provider.ParseDate(record[next])
	if err != nil {
		return Row{}, err
	}
	r.Date = d
	return r, nil
}
