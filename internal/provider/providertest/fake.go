// Package providertest provides an in-memory provider.Source for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/civil"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

// Fake serves canned responses and records every dashboard query.
type Fake struct {
	TeamList   []provider.Team
	Dashboards map[int]map[provider.Measure]provider.Dashboard
	Schedules  map[civil.Date][]provider.ScheduledGame
	Logs       map[civil.Date][]provider.GameLogRecord
	GameDates  map[provider.Season][]civil.Date

	mu             sync.Mutex
	dashboardCalls []provider.DashboardQuery
	logCalls       []civil.Date
}

var _ provider.Source = (*Fake)(nil)

// NewFake returns an empty fake with its maps initialized.
func NewFake() *Fake {
	return &Fake{
		Dashboards: make(map[int]map[provider.Measure]provider.Dashboard),
		Schedules:  make(map[civil.Date][]provider.ScheduledGame),
		Logs:       make(map[civil.Date][]provider.GameLogRecord),
		GameDates:  make(map[provider.Season][]civil.Date),
	}
}

// SetDashboard registers the dashboard returned for a team and measure.
func (f *Fake) SetDashboard(teamID int, m provider.Measure, d provider.Dashboard) {
	if f.Dashboards[teamID] == nil {
		f.Dashboards[teamID] = make(map[provider.Measure]provider.Dashboard)
	}
	f.Dashboards[teamID][m] = d
}

// DashboardCalls returns the dashboard queries received so far.
func (f *Fake) DashboardCalls() []provider.DashboardQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.DashboardQuery(nil), f.dashboardCalls...)
}

// GameLogCalls returns the days whose game log was requested.
func (f *Fake) GameLogCalls() []civil.Date {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]civil.Date(nil), f.logCalls...)
}

func (f *Fake) Teams(ctx context.Context) ([]provider.Team, error) {
	return f.TeamList, nil
}

func (f *Fake) TeamDashboard(ctx context.Context, q provider.DashboardQuery) (provider.Dashboard, error) {
	f.mu.Lock()
	f.dashboardCalls = append(f.dashboardCalls, q)
	f.mu.Unlock()

	d, ok := f.Dashboards[q.TeamID][q.Measure]
	if !ok {
		return nil, fmt.Errorf("team %d %s: %w", q.TeamID, q.Measure, provider.ErrNoRows)
	}
	return d, nil
}

func (f *Fake) Scoreboard(ctx context.Context, date civil.Date) ([]provider.ScheduledGame, error) {
	return f.Schedules[date], nil
}

func (f *Fake) GameLog(ctx context.Context, season provider.Season, date civil.Date) ([]provider.GameLogRecord, error) {
	f.mu.Lock()
	f.logCalls = append(f.logCalls, date)
	f.mu.Unlock()
	return f.Logs[date], nil
}

func (f *Fake) SeasonGameDates(ctx context.Context, season provider.Season) ([]civil.Date, error) {
	return f.GameDates[season], nil
}

// Profile builds base and advanced dashboards for a team from a single
// map of column values, the way the provider splits them.
func (f *Fake) Profile(teamID int, values map[string]float64) {
	base := provider.Dashboard{}
	adv := provider.Dashboard{}
	for k, v := range values {
		switch k {
		case "OFF_RATING", "DEF_RATING", "TS_PCT":
			adv[k] = v
		default:
			base[k] = v
		}
	}
	f.SetDashboard(teamID, provider.MeasureBase, base)
	f.SetDashboard(teamID, provider.MeasureAdvanced, adv)
}
