// Package store persists feature rows to Postgres and reads them back for
// the API.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-predict/internal/dataset"
	"github.com/albapepper/scoracle-predict/internal/features"
	"github.com/albapepper/scoracle-predict/internal/matchup"
	"github.com/albapepper/scoracle-predict/internal/provider"
)

// SeasonSummary describes the rows stored for one season.
type SeasonSummary struct {
	Season  string     `json:"season"`
	Rows    int        `json:"rows"`
	Labeled int        `json:"labeled"`
	First   civil.Date `json:"first_date"`
	Last    civil.Date `json:"last_date"`
}

// Store reads and writes the feature_rows table.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

var _ dataset.Sink = (*Store)(nil)

// SaveSeason replaces a season's rows in one transaction.
func (s *Store) SaveSeason(ctx context.Context, season provider.Season, d *dataset.Dataset) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "delete_feature_season", season.String()); err != nil {
		return 0, fmt.Errorf("clear season %s: %w", season, err)
	}

	batch := &pgx.Batch{}
	for i, r := range d.Rows {
		batch.Queue("upsert_feature_row", rowArgs(season, i, r)...)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range d.Rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("upsert row %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("Season synced to Postgres", "season", season.String(), "rows", len(d.Rows))
	return len(d.Rows), nil
}

// Seasons summarizes every stored season, oldest first.
func (s *Store) Seasons(ctx context.Context) ([]SeasonSummary, error) {
	rows, err := s.pool.Query(ctx, "feature_seasons")
	if err != nil {
		return nil, fmt.Errorf("query seasons: %w", err)
	}
	defer rows.Close()

	var out []SeasonSummary
	for rows.Next() {
		var (
			sum         SeasonSummary
			first, last time.Time
		)
		if err := rows.Scan(&sum.Season, &sum.Rows, &sum.Labeled, &first, &last); err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		sum.First, sum.Last = civil.DateOf(first), civil.DateOf(last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Rows returns a season's rows in stored order.
func (s *Store) Rows(ctx context.Context, season provider.Season) ([]features.Row, error) {
	rows, err := s.pool.Query(ctx, "feature_rows_by_season", season.String())
	if err != nil {
		return nil, fmt.Errorf("query rows %s: %w", season, err)
	}
	defer rows.Close()

	var out []features.Row
	for rows.Next() {
		var rec record
		if err := rows.Scan(&rec.date, &rec.home, &rec.away, &rec.homeStats, &rec.awayStats, &rec.result); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r, err := rec.row()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	var n int
	return s.pool.QueryRow(ctx, "health_check").Scan(&n)
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

func rowArgs(season provider.Season, seq int, r features.Row) []any {
	var result *int16
	if label, ok := r.Label(); ok {
		v := int16(label)
		result = &v
	}
	return []any{
		season.String(),
		seq,
		r.Date.In(time.UTC),
		r.Home,
		r.Away,
		r.HomeStats[:],
		r.AwayStats[:],
		result,
	}
}

type record struct {
	date      time.Time
	home      string
	away      string
	homeStats []float64
	awayStats []float64
	result    *int16
}

func (rec record) row() (features.Row, error) {
	if len(rec.homeStats) != features.NumStats || len(rec.awayStats) != features.NumStats {
		return features.Row{}, fmt.Errorf("%s vs %s: stored %d/%d stats, want %d: %w",
			rec.home, rec.away, len(rec.homeStats), len(rec.awayStats), features.NumStats, dataset.ErrSchemaMismatch)
	}

	r := features.Row{Date: civil.DateOf(rec.date), Home: rec.home, Away: rec.away}
	copy(r.HomeStats[:], rec.homeStats)
	copy(r.AwayStats[:], rec.awayStats)
	if rec.result != nil {
		r.Outcome = matchup.AwayWin
		if *rec.result == 1 {
			r.Outcome = matchup.HomeWin
		}
	}
	return r, nil
}
