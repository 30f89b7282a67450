package features

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

// ErrMissingStat is returned when a dashboard lacks a StatFields column.
var ErrMissingStat = errors.New("dashboard missing stat")

// Window is an inclusive date range within one season.
type Window struct {
	Season provider.Season
	From   civil.Date
	To     civil.Date
}

// perMode pairs each measure with the normalization the profile expects.
var perMode = map[provider.Measure]provider.PerMode{
	provider.MeasureBase:     provider.PerModePer100,
	provider.MeasureAdvanced: provider.PerModeTotals,
}

// Fetcher reads team stat profiles. It keeps no cache: every call fetches.
type Fetcher struct {
	src provider.Source
}

func NewFetcher(src provider.Source) *Fetcher {
	return &Fetcher{src: src}
}

// Snapshot fetches the base and advanced dashboards for a team over w and
// merges them into a Profile.
func (f *Fetcher) Snapshot(ctx context.Context, teamID int, w Window) (Profile, error) {
	var p Profile
	for _, m := range []provider.Measure{provider.MeasureBase, provider.MeasureAdvanced} {
		dash, err := f.src.TeamDashboard(ctx, provider.DashboardQuery{
			TeamID:  teamID,
			Season:  w.Season,
			From:    w.From,
			To:      w.To,
			Measure: m,
			PerMode: perMode[m],
		})
		if err != nil {
			return Profile{}, fmt.Errorf("team %d %s dashboard: %w", teamID, m, err)
		}
		for i, field := range StatFields {
			if field.Measure != m {
				continue
			}
			v, ok := dash[field.Key]
			if !ok {
				return Profile{}, fmt.Errorf("team %d %s: %w", teamID, field.Key, ErrMissingStat)
			}
			p[i] = v
		}
	}
	return p, nil
}
