// Package matchup discovers the contests scheduled or completed on a day and
// resolves each into a home/away pair.
package matchup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/albapepper/scoracle-predict/internal/provider"
	"github.com/albapepper/scoracle-predict/internal/teams"
)

// ErrMalformedPairing is returned when a day's game log does not resolve
// into exactly one home and one away record per game.
var ErrMalformedPairing = errors.New("malformed game log pairing")

// Outcome is the result of a contest from the home side's perspective.
type Outcome int

const (
	Unknown Outcome = iota
	HomeWin
	AwayWin
)

func (o Outcome) String() string {
	switch o {
	case HomeWin:
		return "home-win"
	case AwayWin:
		return "away-win"
	default:
		return "unknown"
	}
}

// Known reports whether the contest has been played.
func (o Outcome) Known() bool { return o != Unknown }

// Contest is one game between two teams on a day.
type Contest struct {
	Date    civil.Date
	Home    provider.Team
	Away    provider.Team
	Outcome Outcome
}

// Resolver turns provider schedule and log data into contests.
type Resolver struct {
	src    provider.Source
	teams  *teams.Registry
	logger *slog.Logger
}

// NewResolver creates a resolver. src should already be wrapped with retries.
func NewResolver(src provider.Source, reg *teams.Registry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{src: src, teams: reg, logger: logger}
}

// Scheduled returns the contests on date's schedule. Outcomes are Unknown.
func (r *Resolver) Scheduled(ctx context.Context, date civil.Date) ([]Contest, error) {
	games, err := r.src.Scoreboard(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("scoreboard %s: %w", date, err)
	}

	contests := make([]Contest, 0, len(games))
	for _, g := range games {
		contests = append(contests, Contest{
			Date: date,
			Home: r.teams.Team(g.HomeTeamID),
			Away: r.teams.Team(g.AwayTeamID),
		})
	}
	return contests, nil
}

// Completed returns the contests played on date with their outcomes, in the
// order each game first appears in the log.
func (r *Resolver) Completed(ctx context.Context, season provider.Season, date civil.Date) ([]Contest, error) {
	records, err := r.src.GameLog(ctx, season, date)
	if err != nil {
		return nil, fmt.Errorf("game log %s: %w", date, err)
	}

	groups, err := pair(records)
	if err != nil {
		return nil, fmt.Errorf("game log %s: %w", date, err)
	}

	contests := make([]Contest, 0, len(groups))
	for _, g := range groups {
		c := Contest{
			Date:    date,
			Home:    r.team(g.home),
			Away:    r.team(g.away),
			Outcome: AwayWin,
		}
		if g.home.Won() {
			c.Outcome = HomeWin
		}
		contests = append(contests, c)
	}
	return contests, nil
}

// team resolves a log record against the registry. Records without an
// identifier are looked up by name, which is where spelling overrides apply.
func (r *Resolver) team(rec provider.GameLogRecord) provider.Team {
	id := rec.TeamID
	if id == 0 {
		id, _ = r.teams.ID(rec.TeamName)
	}
	t := r.teams.Team(id)
	if t.Name == "" && id != 0 {
		t.Name = rec.TeamName
	}
	return t
}

// SeasonBounds returns the first and last played dates of a season.
func (r *Resolver) SeasonBounds(ctx context.Context, season provider.Season) (civil.Date, civil.Date, error) {
	dates, err := r.src.SeasonGameDates(ctx, season)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("season %s game dates: %w", season, err)
	}
	if len(dates) == 0 {
		return civil.Date{}, civil.Date{}, fmt.Errorf("season %s: %w", season, provider.ErrNoRows)
	}

	first, last := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	r.logger.Debug("Season bounds resolved", "season", season.String(), "start", first, "end", last)
	return first, last, nil
}

// ---------------------------------------------------------------------------
// Game log pairing
// ---------------------------------------------------------------------------

type pairing struct {
	home provider.GameLogRecord
	away provider.GameLogRecord
}

// pair groups log records by game and picks the home side of each group by
// its matchup marker. Record order within and across groups is irrelevant.
func pair(records []provider.GameLogRecord) ([]pairing, error) {
	var order []string
	groups := make(map[string][]provider.GameLogRecord)
	for _, rec := range records {
		key := gameKey(rec)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	out := make([]pairing, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if len(g) != 2 {
			return nil, fmt.Errorf("game %s has %d records: %w", key, len(g), ErrMalformedPairing)
		}
		switch {
		case g[0].IsHome() && !g[1].IsHome():
			out = append(out, pairing{home: g[0], away: g[1]})
		case g[1].IsHome() && !g[0].IsHome():
			out = append(out, pairing{home: g[1], away: g[0]})
		default:
			return nil, fmt.Errorf("game %s has no single home record: %w", key, ErrMalformedPairing)
		}
	}
	return out, nil
}

// gameKey identifies the game a record belongs to. Without a game id the
// matchup descriptor is used, which names both teams and reads the same
// from either side once the marker is normalized.
func gameKey(rec provider.GameLogRecord) string {
	if rec.GameID != "" {
		return rec.GameID
	}
	return rec.Date.String() + "/" + canonicalMatchup(rec)
}

// canonicalMatchup renders "HOME-AWAY" for either side's descriptor
// ("BOS vs. MIA" and "MIA @ BOS" both become "BOS-MIA").
func canonicalMatchup(rec provider.GameLogRecord) string {
	home, away, ok := splitMatchup(rec.Matchup)
	if !ok {
		return rec.Matchup + "#" + strconv.Itoa(rec.TeamID)
	}
	return home + "-" + away
}

func splitMatchup(m string) (home, away string, ok bool) {
	if a, b, found := strings.Cut(m, " vs. "); found {
		return strings.TrimSpace(a), strings.TrimSpace(b), true
	}
	if a, b, found := strings.Cut(m, " @ "); found {
		return strings.TrimSpace(b), strings.TrimSpace(a), true
	}
	return "", "", false
}
