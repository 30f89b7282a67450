// Package predict assembles unlabeled rows for a day's schedule, hands them
// to a classifier and renders the results.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"

	"github.com/albapepper/scoracle-predict/internal/features"
	"github.com/albapepper/scoracle-predict/internal/matchup"
	"github.com/albapepper/scoracle-predict/internal/provider"
)

var (
	// ErrBeforeSeasonStart is returned for a date on or before the first
	// played day of its season, when no stats exist yet.
	ErrBeforeSeasonStart = errors.New("date is before the season's first game")

	// ErrClassifierMismatch is returned when the classifier answers with a
	// different number of labels than rows sent.
	ErrClassifierMismatch = errors.New("classifier label count mismatch")
)

// Assembler builds prediction rows for a target date.
type Assembler struct {
	resolver  *matchup.Resolver
	assembler *features.Assembler
	logger    *slog.Logger
}

func NewAssembler(resolver *matchup.Resolver, assembler *features.Assembler, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{resolver: resolver, assembler: assembler, logger: logger}
}

// ForDate returns one unlabeled row per contest scheduled on date, with
// stats from the season's first game through the day before. An empty
// schedule yields no rows and no error.
func (a *Assembler) ForDate(ctx context.Context, date civil.Date) ([]features.Row, error) {
	contests, err := a.resolver.Scheduled(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(contests) == 0 {
		a.logger.Info("No games scheduled", "date", date)
		return nil, nil
	}

	season := provider.SeasonForDate(date)
	start, _, err := a.resolver.SeasonBounds(ctx, season)
	if err != nil {
		return nil, err
	}
	end := date.AddDays(-1)
	if end.Before(start) {
		return nil, fmt.Errorf("%s (season %s starts %s): %w", date, season, start, ErrBeforeSeasonStart)
	}

	rows, err := a.assembler.Assemble(ctx, contests, features.Window{Season: season, From: start, To: end})
	if err != nil {
		return nil, err
	}
	a.logger.Info("Prediction rows assembled", "date", date, "season", season.String(), "rows", len(rows))
	return rows, nil
}

// Prediction is the rendered outcome of one contest.
type Prediction struct {
	Date   civil.Date `json:"date"`
	Home   string     `json:"home"`
	Away   string     `json:"away"`
	Winner string     `json:"winner"`
	Loser  string     `json:"loser"`
}

// String renders "<winner> will beat <loser>".
func (p Prediction) String() string {
	return fmt.Sprintf("%s will beat %s", p.Winner, p.Loser)
}

// HomeFavored reports whether the home side is predicted to win.
func (p Prediction) HomeFavored() bool { return p.Winner == p.Home }

// Render pairs each row with its label: 1 favors the home side, anything
// else the away side.
func Render(rows []features.Row, labels []int) ([]Prediction, error) {
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("%d rows, %d labels: %w", len(rows), len(labels), ErrClassifierMismatch)
	}
	out := make([]Prediction, len(rows))
	for i, r := range rows {
		p := Prediction{Date: r.Date, Home: r.Home, Away: r.Away, Winner: r.Away, Loser: r.Home}
		if labels[i] == 1 {
			p.Winner, p.Loser = r.Home, r.Away
		}
		out[i] = p
	}
	return out, nil
}

// Predict assembles rows for date, classifies them and renders the result.
func Predict(ctx context.Context, a *Assembler, c Classifier, date civil.Date) ([]Prediction, error) {
	rows, err := a.ForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	batch := make([][]float64, len(rows))
	for i, r := range rows {
		batch[i] = r.Features()
	}
	labels, err := c.Classify(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return Render(rows, labels)
}
