package features

import (
	"context"
	"fmt"

	"github.com/albapepper/scoracle-predict/internal/matchup"
)

// Assembler turns contests into feature rows.
type Assembler struct {
	fetcher *Fetcher
}

func NewAssembler(f *Fetcher) *Assembler {
	return &Assembler{fetcher: f}
}

// Assemble fetches both sides' profiles over w for each contest. Rows keep
// contest order; a contest with a known outcome yields a labeled row. Any
// fetch failure aborts the whole batch.
func (a *Assembler) Assemble(ctx context.Context, contests []matchup.Contest, w Window) ([]Row, error) {
	rows := make([]Row, 0, len(contests))
	for _, c := range contests {
		home, err := a.fetcher.Snapshot(ctx, c.Home.ID, w)
		if err != nil {
			return nil, fmt.Errorf("%s vs %s: home: %w", c.Home.Name, c.Away.Name, err)
		}
		away, err := a.fetcher.Snapshot(ctx, c.Away.ID, w)
		if err != nil {
			return nil, fmt.Errorf("%s vs %s: away: %w", c.Home.Name, c.Away.Name, err)
		}
		rows = append(rows, Row{
			Date:      c.Date,
			Home:      c.Home.Name,
			Away:      c.Away.Name,
			HomeStats: home,
			AwayStats: away,
			Outcome:   c.Outcome,
		})
	}
	return rows, nil
}
