package retry

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

// Source decorates a provider.Source so every call runs under a Policy.
type Source struct {
	next   provider.Source
	policy Policy
	logger *slog.Logger
}

var _ provider.Source = (*Source)(nil)

// NewSource wraps next with the given policy.
func NewSource(next provider.Source, policy Policy, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{next: next, policy: policy, logger: logger}
}

func (s *Source) Teams(ctx context.Context) ([]provider.Team, error) {
	return Do(ctx, s.policy, "teams", s.logger, func(ctx context.Context) ([]provider.Team, error) {
		return s.next.Teams(ctx)
	})
}

func (s *Source) TeamDashboard(ctx context.Context, q provider.DashboardQuery) (provider.Dashboard, error) {
	op := fmt.Sprintf("dashboard %s team=%d", q.Measure, q.TeamID)
	return Do(ctx, s.policy, op, s.logger, func(ctx context.Context) (provider.Dashboard, error) {
		return s.next.TeamDashboard(ctx, q)
	})
}

func (s *Source) Scoreboard(ctx context.Context, date civil.Date) ([]provider.ScheduledGame, error) {
	return Do(ctx, s.policy, "scoreboard "+date.String(), s.logger, func(ctx context.Context) ([]provider.ScheduledGame, error) {
		return s.next.Scoreboard(ctx, date)
	})
}

func (s *Source) GameLog(ctx context.Context, season provider.Season, date civil.Date) ([]provider.GameLogRecord, error) {
	return Do(ctx, s.policy, "game log "+date.String(), s.logger, func(ctx context.Context) ([]provider.GameLogRecord, error) {
		return s.next.GameLog(ctx, season, date)
	})
}

func (s *Source) SeasonGameDates(ctx context.Context, season provider.Season) ([]civil.Date, error) {
	return Do(ctx, s.policy, "season games "+season.String(), s.logger, func(ctx context.Context) ([]civil.Date, error) {
		return s.next.SeasonGameDates(ctx, season)
	})
}
