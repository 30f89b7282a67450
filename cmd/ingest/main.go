// Command ingest builds NBA feature datasets and runs predictions.
//
// Usage:
//
//	scoracle-ingest season build --season 2021-22
//	scoracle-ingest season build --season 2021-22 --start 10/19/2021 --end 11/30/2021 --sink
//	scoracle-ingest corpus build --last 2021-22 --seasons 4 --workers 2
//	scoracle-ingest corpus merge --first 2018-19 --last 2021-22
//	scoracle-ingest corpus list
//	scoracle-ingest predict --date 01/10/2024
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"cloud.google.com/go/civil"
	"github.com/AlecAivazis/survey/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/dataset"
	"github.com/albapepper/scoracle-predict/internal/db"
	"github.com/albapepper/scoracle-predict/internal/features"
	"github.com/albapepper/scoracle-predict/internal/matchup"
	"github.com/albapepper/scoracle-predict/internal/predict"
	"github.com/albapepper/scoracle-predict/internal/provider"
	"github.com/albapepper/scoracle-predict/internal/provider/nbastats"
	"github.com/albapepper/scoracle-predict/internal/retry"
	"github.com/albapepper/scoracle-predict/internal/store"
	"github.com/albapepper/scoracle-predict/internal/teams"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "scoracle-ingest",
		Short:        "NBA feature dataset builder and predictor",
		SilenceUsage: true,
	}

	root.AddCommand(seasonCmd())
	root.AddCommand(corpusCmd())
	root.AddCommand(predictCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// season command
// --------------------------------------------------------------------------

func seasonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "season",
		Short: "Build a single season dataset",
	}
	cmd.AddCommand(seasonBuildCmd())
	return cmd
}

func seasonBuildCmd() *cobra.Command {
	var (
		seasonFlag string
		startFlag  string
		endFlag    string
		sink       bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build games_<season>.csv day by day",
		RunE: func(cmd *cobra.Command, args []string) error {
			season, err := provider.ParseSeason(seasonFlag)
			if err != nil {
				return err
			}
			return runPipeline(sink, func(ctx context.Context, p *pipeline) error {
				seasonStart, end, err := p.resolver.SeasonBounds(ctx, season)
				if err != nil {
					return err
				}
				start, err := dateFlag(startFlag, seasonStart)
				if err != nil {
					return err
				}
				if end, err = dateFlag(endFlag, end); err != nil {
					return err
				}

				bar := progressbar.Default(int64(end.DaysSince(start)+1), "building "+season.String())
				p.builder.OnDay = func(dataset.DayReport) { bar.Add(1) }

				ds, err := p.builder.Build(ctx, season, seasonStart, start, end)
				bar.Finish()
				if err != nil {
					return err
				}

				path, err := p.csv.Save(ds)
				if err != nil {
					return err
				}
				logger.Info("Season dataset written", "file", path, "rows", ds.Len())

				if p.sink != nil {
					if _, err := p.sink.SaveSeason(ctx, season, ds); err != nil {
						return fmt.Errorf("sync to postgres: %w", err)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&seasonFlag, "season", currentSeason().String(), "Season (YYYY-YY)")
	cmd.Flags().StringVar(&startFlag, "start", "", "First day MM/DD/YYYY (default: season's first game)")
	cmd.Flags().StringVar(&endFlag, "end", "", "Last day MM/DD/YYYY (default: season's last game)")
	cmd.Flags().BoolVar(&sink, "sink", false, "Also write rows to Postgres (requires DATABASE_URL)")
	return cmd
}

// --------------------------------------------------------------------------
// corpus command
// --------------------------------------------------------------------------

func corpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Build and merge multi-season corpora",
	}
	cmd.AddCommand(corpusBuildCmd())
	cmd.AddCommand(corpusMergeCmd())
	cmd.AddCommand(corpusListCmd())
	return cmd
}

func corpusBuildCmd() *cobra.Command {
	var (
		lastFlag string
		seasons  int
		workers  int
		sink     bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build N seasons ending at --last and merge them oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			last, err := provider.ParseSeason(lastFlag)
			if err != nil {
				return err
			}
			return runPipeline(sink, func(ctx context.Context, p *pipeline) error {
				var s dataset.Sink
				if p.sink != nil {
					s = p.sink
				}
				corpus := dataset.NewCorpus(p.builder, p.csv, s, logger)
				corpus.Workers = workers

				result := corpus.Run(ctx, last, seasons)
				for _, e := range result.Errors {
					logger.Error("corpus error", "error", e)
				}
				printSeasonResults(result)
				return result.Err()
			})
		},
	}
	cmd.Flags().StringVar(&lastFlag, "last", currentSeason().String(), "Most recent season (YYYY-YY)")
	cmd.Flags().IntVar(&seasons, "seasons", 4, "Number of seasons")
	cmd.Flags().IntVar(&workers, "workers", 1, "Seasons built concurrently")
	cmd.Flags().BoolVar(&sink, "sink", false, "Also write rows to Postgres (requires DATABASE_URL)")
	return cmd
}

func corpusMergeCmd() *cobra.Command {
	var firstFlag, lastFlag string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge stored season files into all_games_<first>-<last>.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := provider.ParseSeason(firstFlag)
			if err != nil {
				return err
			}
			last, err := provider.ParseSeason(lastFlag)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			corpus := dataset.NewCorpus(nil, dataset.NewCSVStore(cfg.DataDir), nil, logger)
			merged, path, err := corpus.Merge(first, last)
			if err != nil {
				if errors.Is(err, dataset.ErrArtifactNotFound) {
					return fmt.Errorf("%w (run `season build` first)", err)
				}
				return err
			}
			logger.Info("Corpus merged", "file", path, "rows", merged.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&firstFlag, "first", "", "Oldest season (YYYY-YY)")
	cmd.Flags().StringVar(&lastFlag, "last", currentSeason().String(), "Newest season (YYYY-YY)")
	_ = cmd.MarkFlagRequired("first")
	return cmd
}

func corpusListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the seasons behind the last corpus build",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			entries, err := dataset.NewCSVStore(cfg.DataDir).LoadManifest()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Season", "File", "Rows", "First", "Last"})
			for _, e := range entries {
				t.AppendRow(table.Row{e.Season, e.File, e.Rows, e.Start, e.End})
			}
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		},
	}
}

func printSeasonResults(result dataset.CorpusResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Season", "Rows", "Synced", "Duration", "Status"})
	for _, s := range result.Seasons {
		status := "ok"
		if s.Error != "" {
			status = s.Error
		}
		t.AppendRow(table.Row{s.Season.String(), s.Rows, s.Synced, s.Duration.Round(time.Second), status})
	}
	t.AppendFooter(table.Row{"corpus", result.CorpusRows, "", result.Duration.Round(time.Second), result.CorpusFile})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// --------------------------------------------------------------------------
// predict command
// --------------------------------------------------------------------------

func predictCmd() *cobra.Command {
	var dateStr string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict winners of the games scheduled on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dateStr == "" {
				prompt := &survey.Input{
					Message: "Date to predict (MM/DD/YYYY)",
					Default: provider.FormatDate(civil.DateOf(time.Now())),
				}
				err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
					s, _ := val.(string)
					_, err := provider.ParseDate(s)
					return err
				}))
				if err != nil {
					return err
				}
			}
			date, err := provider.ParseDate(dateStr)
			if err != nil {
				return err
			}

			return runPipeline(false, func(ctx context.Context, p *pipeline) error {
				if p.cfg.ClassifierURL == "" {
					return fmt.Errorf("CLASSIFIER_URL is required")
				}
				classifier := predict.NewHTTPClassifier(p.cfg.ClassifierURL, p.cfg.ClassifierTimeout, logger)
				assembler := predict.NewAssembler(p.resolver, p.assembler, logger)

				preds, err := predict.Predict(ctx, assembler, classifier, date)
				if err != nil {
					return err
				}
				if len(preds) == 0 {
					fmt.Printf("No games scheduled on %s\n", provider.FormatDate(date))
					return nil
				}

				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"Home", "Away", "Prediction"})
				for _, pr := range preds {
					t.AppendRow(table.Row{pr.Home, pr.Away, pr.String()})
				}
				t.SetStyle(table.StyleLight)
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dateStr, "date", "", "Date MM/DD/YYYY (prompted when omitted)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// pipeline is the wired component graph shared by every command.
type pipeline struct {
	cfg       *config.Config
	resolver  *matchup.Resolver
	assembler *features.Assembler
	builder   *dataset.Builder
	csv       *dataset.CSVStore
	sink      *store.Store
}

// runPipeline handles config loading, provider wiring, the team directory,
// the optional Postgres sink and context cancellation.
func runPipeline(withSink bool, fn func(ctx context.Context, p *pipeline) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client := nbastats.NewClient(cfg.StatsBaseURL, cfg.StatsTimeout, cfg.StatsRequestsPerMinute, logger)
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.RetryMaxAttempts
	policy.InitialInterval = cfg.RetryInitialInterval
	policy.MaxInterval = cfg.RetryMaxInterval
	src := retry.NewSource(client, policy, logger)

	reg, err := teams.Resolve(ctx, src)
	if err != nil {
		return err
	}
	logger.Info("Team directory resolved", "names", reg.Len())

	resolver := matchup.NewResolver(src, reg, logger)
	assembler := features.NewAssembler(features.NewFetcher(src))
	p := &pipeline{
		cfg:       cfg,
		resolver:  resolver,
		assembler: assembler,
		builder:   dataset.NewBuilder(resolver, assembler, logger),
		csv:       dataset.NewCSVStore(cfg.DataDir),
	}

	if withSink {
		if !cfg.HasDatabase() {
			return fmt.Errorf("--sink requires DATABASE_URL")
		}
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		p.sink = store.New(pool.Pool, logger)
	}

	return fn(ctx, p)
}

func currentSeason() provider.Season {
	return provider.SeasonForDate(civil.DateOf(time.Now()))
}

// dateFlag parses an optional MM/DD/YYYY flag value.
func dateFlag(v string, fallback civil.Date) (civil.Date, error) {
	if v == "" {
		return fallback, nil
	}
	return provider.ParseDate(v)
}
