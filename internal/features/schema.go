// Package features defines the dataset column contract and assembles feature
// rows from contests and team stat snapshots.
package features

import "github.com/albapepper/scoracle-predict/internal/provider"

// StatField is one column of a team stat profile and the dashboard it is
// read from.
type StatField struct {
	Key     string
	Measure provider.Measure
}

// NumStats is the number of statistics per team.
const NumStats = 13

// StatFields is the ordered stat profile. The order is the dataset column
// contract: changing it invalidates every stored corpus.
var StatFields = [NumStats]StatField{
	{"W_PCT", provider.MeasureBase},
	{"FG_PCT", provider.MeasureBase},
	{"FG3_PCT", provider.MeasureBase},
	{"FT_PCT", provider.MeasureBase},
	{"REB", provider.MeasureBase},
	{"AST", provider.MeasureBase},
	{"TOV", provider.MeasureBase},
	{"STL", provider.MeasureBase},
	{"BLK", provider.MeasureBase},
	{"PLUS_MINUS", provider.MeasureBase},
	{"OFF_RATING", provider.MeasureAdvanced},
	{"DEF_RATING", provider.MeasureAdvanced},
	{"TS_PCT", provider.MeasureAdvanced},
}

// Column names outside the stat block.
const (
	HomeTeamColumn = "HOME_TEAM"
	AwayTeamColumn = "AWAY_TEAM"
	ResultColumn   = "RESULT"
	DateColumn     = "DATE"

	HomePrefix = "H_"
	AwayPrefix = "A_"
)

// Row widths: two identity columns, both stat blocks and the date, plus the
// result when labeled.
const (
	NumFeatures    = 2 * NumStats
	UnlabeledWidth = 2 + NumFeatures + 1
	LabeledWidth   = UnlabeledWidth + 1
)

// FeatureColumns returns the classifier input columns: home stats then away
// stats, prefixed.
func FeatureColumns() []string {
	cols := make([]string, 0, NumFeatures)
	for _, prefix := range []string{HomePrefix, AwayPrefix} {
		for _, f := range StatFields {
			cols = append(cols, prefix+f.Key)
		}
	}
	return cols
}

// Columns returns the full header. RESULT precedes DATE in labeled rows,
// matching the stored season files.
func Columns(labeled bool) []string {
	cols := make([]string, 0, LabeledWidth)
	cols = append(cols, HomeTeamColumn, AwayTeamColumn)
	cols = append(cols, FeatureColumns()...)
	if labeled {
		cols = append(cols, ResultColumn)
	}
	return append(cols, DateColumn)
}
