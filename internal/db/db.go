// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema bootstrap and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-predict/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool. The feature_rows table is
// created before statements are prepared against it.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if err := ensureSchema(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Schema is the DDL for persisted feature rows. seq keeps the dataset's row
// order, stats arrays follow its stat column order and result is NULL for
// unplayed contests.
const Schema = `
CREATE TABLE IF NOT EXISTS ` + config.FeatureRowsTable + ` (
	season      text        NOT NULL,
	seq         integer     NOT NULL,
	game_date   date        NOT NULL,
	home_team   text        NOT NULL,
	away_team   text        NOT NULL,
	home_stats  float8[]    NOT NULL,
	away_stats  float8[]    NOT NULL,
	result      smallint,
	updated_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (season, game_date, home_team, away_team)
);
CREATE INDEX IF NOT EXISTS feature_rows_season_seq_idx ON ` + config.FeatureRowsTable + ` (season, seq);
`

func ensureSchema(ctx context.Context, url string) error {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return fmt.Errorf("connect for schema: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// registerPreparedStatements registers all statements the API and ingestion
// layers use.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// API: seasons and rows
		"feature_seasons": `SELECT season, count(*), count(result), min(game_date), max(game_date)
			FROM ` + config.FeatureRowsTable + ` GROUP BY season ORDER BY season`,
		"feature_rows_by_season": `SELECT game_date, home_team, away_team, home_stats, away_stats, result
			FROM ` + config.FeatureRowsTable + ` WHERE season = $1
			ORDER BY seq`,

		// Ingestion: season sink
		"delete_feature_season": "DELETE FROM " + config.FeatureRowsTable + " WHERE season = $1",
		"upsert_feature_row": `INSERT INTO ` + config.FeatureRowsTable + `
			(season, seq, game_date, home_team, away_team, home_stats, away_stats, result)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (season, game_date, home_team, away_team) DO UPDATE SET
				seq        = EXCLUDED.seq,
				home_stats = EXCLUDED.home_stats,
				away_stats = EXCLUDED.away_stats,
				result     = EXCLUDED.result,
				updated_at = now()`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
