package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/features"
	"github.com/albapepper/scoracle-predict/internal/matchup"
	"github.com/albapepper/scoracle-predict/internal/provider"
)

// DayReport describes one processed day of a season build.
type DayReport struct {
	Date     civil.Date
	Window   features.Window
	Contests int
	Rows     int
}

// Builder accumulates a season's labeled rows day by day.
type Builder struct {
	resolver  *matchup.Resolver
	assembler *features.Assembler
	logger    *slog.Logger

	// OnDay, when set, is called after each day is processed.
	OnDay func(DayReport)
}

func NewBuilder(resolver *matchup.Resolver, assembler *features.Assembler, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{resolver: resolver, assembler: assembler, logger: logger}
}

// SeasonName returns the artifact name of a season dataset.
func SeasonName(season provider.Season) string {
	return fmt.Sprintf(config.SeasonFilePattern, season.String())
}

// BuildSeason resolves the season's first and last played dates and builds
// every day between them.
func (b *Builder) BuildSeason(ctx context.Context, season provider.Season) (*Dataset, error) {
	start, end, err := b.resolver.SeasonBounds(ctx, season)
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, season, start, start, end)
}

// Build walks every day from start to end inclusive. Each day's completed
// contests are assembled with stats from seasonStart through that day, so
// the window covers the season so far even when start is later.
// Days without games add no rows.
func (b *Builder) Build(ctx context.Context, season provider.Season, seasonStart, start, end civil.Date) (*Dataset, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("build %s: end %s before start %s", season, end, start)
	}
	if start.Before(seasonStart) {
		return nil, fmt.Errorf("build %s: start %s before season start %s", season, start, seasonStart)
	}

	began := time.Now()
	ds := New(SeasonName(season), true)
	days := end.DaysSince(start) + 1
	b.logger.Info("Building season", "season", season.String(), "season_start", seasonStart, "start", start, "end", end, "days", days)

	for day := start; !day.After(end); day = day.AddDays(1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		contests, err := b.resolver.Completed(ctx, season, day)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", season, err)
		}

		w := features.Window{Season: season, From: seasonStart, To: day}
		rows, err := b.assembler.Assemble(ctx, contests, w)
		if err != nil {
			return nil, fmt.Errorf("build %s on %s: %w", season, day, err)
		}
		if err := ds.Append(rows...); err != nil {
			return nil, err
		}

		b.logger.Info("Day processed", "date", day, "contests", len(contests), "rows", len(rows))
		if b.OnDay != nil {
			b.OnDay(DayReport{Date: day, Window: w, Contests: len(contests), Rows: len(rows)})
		}
	}

	b.logger.Info("Season built", "season", season.String(), "rows", ds.Len(), "duration", time.Since(began).Round(time.Second))
	return ds, nil
}
