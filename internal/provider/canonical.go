// Package provider defines canonical data types that the upstream stats
// provider normalizes into. These structs are the contract between the
// provider client and the matchup/feature layers: the client outputs
// these, the pipeline consumes them.
//
// Swapping the provider means implementing Source against a new API. The
// matchup resolver, feature assembler and dataset schema never change.
package provider

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/civil"
)

var (
	// ErrNoRows is returned when an endpoint answers with an empty result set
	// where at least one row is required (e.g. a team dashboard).
	ErrNoRows = errors.New("provider returned no rows")

	// ErrPermanent marks failures that retrying cannot fix (bad request,
	// unknown endpoint). The retry layer stops immediately on these.
	ErrPermanent = errors.New("permanent provider failure")
)

// Team is the canonical team identity.
type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Measure selects which family of dashboard statistics to fetch.
type Measure string

const (
	MeasureBase     Measure = "Base"
	MeasureAdvanced Measure = "Advanced"
)

// PerMode selects how counting stats are normalized.
type PerMode string

const (
	PerModePer100 PerMode = "Per100Possessions"
	PerModeTotals PerMode = "Totals"
)

// DashboardQuery scopes a team dashboard to one season and an inclusive
// date window.
type DashboardQuery struct {
	TeamID  int
	Season  Season
	From    civil.Date
	To      civil.Date
	Measure Measure
	PerMode PerMode
}

// Dashboard is the overall row of a team dashboard keyed by upstream column
// name (W_PCT, FG_PCT, OFF_RATING, ...).
type Dashboard map[string]float64

// ScheduledGame is one entry of a day's schedule.
type ScheduledGame struct {
	GameID     string
	Date       civil.Date
	HomeTeamID int
	AwayTeamID int
}

// GameLogRecord is one participant's line of a completed game. The league
// game log returns two of these per game.
type GameLogRecord struct {
	GameID   string
	Date     civil.Date
	TeamID   int
	TeamName string
	Matchup  string // "BOS vs. MIA" (home) or "MIA @ BOS" (away)
	WL       string // "W" or "L"
}

// homeMarker is the matchup notation used on the home participant's line.
const homeMarker = "vs."

// IsHome reports whether the record belongs to the home participant.
func (r GameLogRecord) IsHome() bool {
	return strings.Contains(r.Matchup, homeMarker)
}

// Won reports whether the record's team won the game.
func (r GameLogRecord) Won() bool {
	return strings.EqualFold(strings.TrimSpace(r.WL), "W")
}

// Source is every upstream query the pipeline needs.
type Source interface {
	// Teams returns the current team directory.
	Teams(ctx context.Context) ([]Team, error)
	// TeamDashboard returns one team's overall statistics for a window.
	TeamDashboard(ctx context.Context, q DashboardQuery) (Dashboard, error)
	// Scoreboard returns the games scheduled on date.
	Scoreboard(ctx context.Context, date civil.Date) ([]ScheduledGame, error)
	// GameLog returns the per-team records of games completed on date.
	GameLog(ctx context.Context, season Season, date civil.Date) ([]GameLogRecord, error)
	// SeasonGameDates returns the date of every game played in a season.
	SeasonGameDates(ctx context.Context, season Season) ([]civil.Date, error)
}
