package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

// Sink receives each built season in addition to the CSV store.
type Sink interface {
	SaveSeason(ctx context.Context, season provider.Season, d *Dataset) (int, error)
}

// SeasonResult is the outcome of building one season.
type SeasonResult struct {
	Season   provider.Season
	File     string
	Rows     int
	Synced   int
	First    string
	Last     string
	Error    string
	Duration time.Duration
}

// CorpusResult tracks a corpus run.
type CorpusResult struct {
	Seasons    []SeasonResult
	CorpusFile string
	CorpusRows int
	Succeeded  int
	Failed     int
	Errors     []string
	Duration   time.Duration
}

// AddErrorf records a formatted error message.
func (r *CorpusResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the run.
func (r *CorpusResult) Summary() string {
	return fmt.Sprintf(
		"seasons=%d succeeded=%d failed=%d corpus=%s rows=%d errors=%d duration=%s",
		len(r.Seasons), r.Succeeded, r.Failed, r.CorpusFile, r.CorpusRows,
		len(r.Errors), r.Duration.Round(time.Second),
	)
}

// Corpus builds a run of seasons and merges them.
type Corpus struct {
	builder *Builder
	store   *CSVStore
	sink    Sink
	logger  *slog.Logger

	// Workers is the number of seasons built concurrently. Values below 1
	// build sequentially.
	Workers int
}

func NewCorpus(builder *Builder, store *CSVStore, sink Sink, logger *slog.Logger) *Corpus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Corpus{builder: builder, store: store, sink: sink, logger: logger, Workers: 1}
}

// Seasons returns the n seasons ending at last, oldest first.
func Seasons(last provider.Season, n int) []provider.Season {
	if n < 1 {
		return nil
	}
	out := make([]provider.Season, n)
	for i := range out {
		out[i] = provider.Season{StartYear: last.StartYear - (n - 1) + i}
	}
	return out
}

// Run builds and stores each of the n seasons ending at last, then merges
// them oldest first into one corpus file. A failed season aborts the merge.
func (c *Corpus) Run(ctx context.Context, last provider.Season, n int) CorpusResult {
	start := time.Now()
	var result CorpusResult

	seasons := Seasons(last, n)
	if len(seasons) == 0 {
		result.AddErrorf("no seasons requested")
		return result
	}

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(seasons) {
		workers = len(seasons)
	}

	ch := make(chan provider.Season, len(seasons))
	for _, s := range seasons {
		ch <- s
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for season := range ch {
				r := c.buildOne(ctx, season)

				mu.Lock()
				result.Seasons = append(result.Seasons, r)
				if r.Error == "" {
					result.Succeeded++
				} else {
					result.Failed++
					result.AddErrorf("season %s: %s", season, r.Error)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Slice(result.Seasons, func(i, j int) bool {
		return result.Seasons[i].Season.StartYear < result.Seasons[j].Season.StartYear
	})

	if result.Failed == 0 {
		merged, path, err := c.Merge(seasons[0], seasons[len(seasons)-1])
		if err != nil {
			result.AddErrorf("merge: %v", err)
		} else {
			result.CorpusFile = path
			result.CorpusRows = merged.Len()
			c.writeManifest(result.Seasons)
		}
	}

	result.Duration = time.Since(start)
	c.logger.Info("Corpus run complete", "summary", result.Summary())
	return result
}

func (c *Corpus) buildOne(ctx context.Context, season provider.Season) SeasonResult {
	start := time.Now()
	r := SeasonResult{Season: season}
	ds, err := c.builder.BuildSeason(ctx, season)
	if err != nil {
		r.Error = err.Error()
		r.Duration = time.Since(start)
		return r
	}
	r.Rows = ds.Len()
	if r.Rows > 0 {
		r.First = ds.Rows[0].Date.String()
		r.Last = ds.Rows[r.Rows-1].Date.String()
	}

	path, err := c.store.Save(ds)
	if err != nil {
		r.Error = err.Error()
		r.Duration = time.Since(start)
		return r
	}
	r.File = path

	if c.sink != nil {
		n, err := c.sink.SaveSeason(ctx, season, ds)
		if err != nil {
			// The CSV artifact is authoritative; a sink failure is reported
			// but does not fail the season.
			c.logger.Warn("Sink write failed", "season", season.String(), "error", err)
		}
		r.Synced = n
	}

	r.Duration = time.Since(start)
	c.logger.Info("Season stored", "season", season.String(), "rows", r.Rows, "file", path)
	return r
}

// Merge loads the stored season files first through last, oldest first, and
// writes the merged corpus. A missing season file is fatal.
func (c *Corpus) Merge(first, last provider.Season) (*Dataset, string, error) {
	if last.StartYear < first.StartYear {
		return nil, "", fmt.Errorf("merge: %s is before %s", last, first)
	}

	var parts []*Dataset
	for s := first; s.StartYear <= last.StartYear; s = s.Next() {
		d, err := c.store.LoadSeason(s)
		if err != nil {
			return nil, "", err
		}
		parts = append(parts, d)
	}

	merged, err := Merge(CorpusName(first, last), parts...)
	if err != nil {
		return nil, "", err
	}
	path, err := c.store.Save(merged)
	if err != nil {
		return nil, "", err
	}
	c.logger.Info("Corpus written", "file", path, "seasons", len(parts), "rows", merged.Len())
	return merged, path, nil
}

func (c *Corpus) writeManifest(seasons []SeasonResult) {
	entries := make([]ManifestEntry, 0, len(seasons))
	for _, s := range seasons {
		entries = append(entries, ManifestEntry{
			Season: s.Season.String(),
			File:   SeasonName(s.Season),
			Rows:   s.Rows,
			Start:  s.First,
			End:    s.Last,
		})
	}
	if err := c.store.SaveManifest(entries); err != nil {
		c.logger.Warn("Manifest write failed", "error", err)
	}
}

// Err joins the accumulated errors, or returns nil when the run was clean.
func (r *CorpusResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return errors.New(strings.Join(r.Errors, "; "))
}
