package dataset

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-predict/internal/features"
	"github.com/albapepper/scoracle-predict/internal/matchup"
	"github.com/albapepper/scoracle-predict/internal/provider"
	"github.com/albapepper/scoracle-predict/internal/provider/providertest"
	"github.com/albapepper/scoracle-predict/internal/teams"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func statValues(base float64) map[string]float64 {
	out := make(map[string]float64, features.NumStats)
	for i, f := range features.StatFields {
		out[f.Key] = base + float64(i)/10
	}
	return out
}

// seasonFake serves a two-game season: one game on the first day, none on
// the second, one on the third.
func seasonFake(season provider.Season) *providertest.Fake {
	src := providertest.NewFake()
	src.TeamList = []provider.Team{{ID: 1, Name: "Team A"}, {ID: 2, Name: "Team B"}}
	src.Profile(1, statValues(1))
	src.Profile(2, statValues(2))

	y := season.StartYear
	d1, d3 := date(y, 10, 19), date(y, 10, 21)
	src.GameDates[season] = []civil.Date{d3, d1}
	src.Logs[d1] = []provider.GameLogRecord{
		{GameID: "1", Date: d1, TeamID: 2, Matchup: "BBB @ AAA", WL: "L"},
		{GameID: "1", Date: d1, TeamID: 1, Matchup: "AAA vs. BBB", WL: "W"},
	}
	src.Logs[d3] = []provider.GameLogRecord{
		{GameID: "2", Date: d3, TeamID: 2, Matchup: "BBB vs. AAA", WL: "W"},
		{GameID: "2", Date: d3, TeamID: 1, Matchup: "AAA @ BBB", WL: "L"},
	}
	return src
}

func newBuilder(src *providertest.Fake) *Builder {
	reg := teams.New(src.TeamList)
	resolver := matchup.NewResolver(src, reg, nil)
	return NewBuilder(resolver, features.NewAssembler(features.NewFetcher(src)), nil)
}

func TestBuild_WindowGrowsFromSeasonStart(t *testing.T) {
	season := provider.Season{StartYear: 2021}
	src := seasonFake(season)
	b := newBuilder(src)

	var reports []DayReport
	b.OnDay = func(r DayReport) { reports = append(reports, r) }

	ds, err := b.BuildSeason(context.Background(), season)
	require.NoError(t, err)

	assert.Equal(t, "games_2021-22.csv", ds.Name)
	assert.Equal(t, features.Columns(true), ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "Team A", ds.Rows[0].Home)
	assert.Equal(t, matchup.HomeWin, ds.Rows[0].Outcome)
	assert.Equal(t, "Team B", ds.Rows[1].Home)
	assert.Equal(t, matchup.HomeWin, ds.Rows[1].Outcome)

	require.Len(t, reports, 3)
	start := date(2021, 10, 19)
	for i, r := range reports {
		assert.Equal(t, start, r.Window.From)
		assert.Equal(t, start.AddDays(i), r.Window.To)
		assert.Equal(t, r.Date, r.Window.To)
	}
	assert.Equal(t, 0, reports[1].Contests)
	assert.Equal(t, 0, reports[1].Rows)

	for _, q := range src.DashboardCalls() {
		assert.Equal(t, start, q.From)
	}
	assert.Len(t, src.GameLogCalls(), 3)
}

func TestBuild_RejectsInvertedRange(t *testing.T) {
	b := newBuilder(seasonFake(provider.Season{StartYear: 2021}))
	_, err := b.Build(context.Background(), provider.Season{StartYear: 2021}, date(2021, 10, 19), date(2021, 11, 2), date(2021, 11, 1))
	assert.Error(t, err)

	_, err = b.Build(context.Background(), provider.Season{StartYear: 2021}, date(2021, 10, 19), date(2021, 10, 18), date(2021, 10, 21))
	assert.Error(t, err)
}

func TestBuild_PartialRangeKeepsSeasonStartWindow(t *testing.T) {
	season := provider.Season{StartYear: 2021}
	src := seasonFake(season)
	b := newBuilder(src)

	var reports []DayReport
	b.OnDay = func(r DayReport) { reports = append(reports, r) }

	seasonStart := date(2021, 10, 19)
	ds, err := b.Build(context.Background(), season, seasonStart, date(2021, 10, 20), date(2021, 10, 21))
	require.NoError(t, err)

	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "Team B", ds.Rows[0].Home)

	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, seasonStart, r.Window.From)
		assert.Equal(t, r.Date, r.Window.To)
	}
	require.NotEmpty(t, src.DashboardCalls())
	for _, q := range src.DashboardCalls() {
		assert.Equal(t, seasonStart, q.From)
		assert.Equal(t, date(2021, 10, 21), q.To)
	}
	assert.Len(t, src.GameLogCalls(), 2)
}

func TestBuild_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := newBuilder(seasonFake(provider.Season{StartYear: 2021}))
	_, err := b.Build(ctx, provider.Season{StartYear: 2021}, date(2021, 10, 19), date(2021, 10, 19), date(2021, 10, 21))
	assert.ErrorIs(t, err, context.Canceled)
}

func labeledSet(name string, dates ...civil.Date) *Dataset {
	d := New(name, true)
	for i, day := range dates {
		outcome := matchup.HomeWin
		if i%2 == 1 {
			outcome = matchup.AwayWin
		}
		_ = d.Append(features.Row{Date: day, Home: name + "-home", Away: name + "-away", Outcome: outcome})
	}
	return d
}

func TestMerge_OrderPreservingAndAssociative(t *testing.T) {
	s1 := labeledSet("s1", date(2018, 10, 16), date(2018, 10, 17))
	s2 := labeledSet("s2", date(2019, 10, 22))
	s3 := labeledSet("s3", date(2020, 12, 22), date(2020, 12, 23))
	s4 := labeledSet("s4", date(2021, 10, 19))

	first, err := Merge("abc", s1, s2, s3)
	require.NoError(t, err)
	stepwise, err := Merge("abcd", first, s4)
	require.NoError(t, err)
	direct, err := Merge("abcd", s1, s2, s3, s4)
	require.NoError(t, err)

	assert.Equal(t, direct.Rows, stepwise.Rows)
	require.Len(t, direct.Rows, 6)
	assert.Equal(t, "s1-home", direct.Rows[0].Home)
	assert.Equal(t, "s4-home", direct.Rows[5].Home)
}

func TestMerge_SchemaMismatch(t *testing.T) {
	labeled := labeledSet("labeled", date(2021, 10, 19))
	unlabeled := New("unlabeled", false)
	require.NoError(t, unlabeled.Append(features.Row{Date: date(2024, 1, 10), Home: "A", Away: "B"}))

	assert.Len(t, unlabeled.Columns, 29)
	assert.Len(t, labeled.Columns, 30)

	_, err := Merge("bad", unlabeled, labeled)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	_, err = Merge("bad", labeled, unlabeled)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestAppend_RejectsWrongWidth(t *testing.T) {
	d := New("labeled", true)
	err := d.Append(features.Row{Date: date(2024, 1, 10), Home: "A", Away: "B"})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Zero(t, d.Len())
}

func TestCSVStore_RoundTrip(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	src := labeledSet(SeasonName(provider.Season{StartYear: 2021}), date(2021, 10, 19), date(2021, 10, 20))
	src.Rows[1].HomeStats[3] = 0.815

	path, err := store.Save(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "games_2021-22.csv"), path)

	loaded, err := store.LoadSeason(provider.Season{StartYear: 2021})
	require.NoError(t, err)
	assert.Equal(t, src.Columns, loaded.Columns)
	assert.Equal(t, src.Rows, loaded.Rows)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "HOME_TEAM,AWAY_TEAM,H_W_PCT")
	assert.Contains(t, string(raw), ",1,10/19/2021")
}

func TestCSVStore_MissingArtifact(t *testing.T) {
	_, err := NewCSVStore(t.TempDir()).LoadSeason(provider.Season{StartYear: 1999})
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestCSVStore_RejectsForeignHeader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "odd.csv"), []byte("A,B\n1,2\n"), 0o644))

	_, err := NewCSVStore(dir).Load("odd.csv")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestSeasonsAndCorpusName(t *testing.T) {
	seasons := Seasons(provider.Season{StartYear: 2021}, 4)
	require.Len(t, seasons, 4)
	assert.Equal(t, 2018, seasons[0].StartYear)
	assert.Equal(t, 2021, seasons[3].StartYear)
	assert.Equal(t, "all_games_2018-22.csv", CorpusName(seasons[0], seasons[3]))
	assert.Empty(t, Seasons(provider.Season{StartYear: 2021}, 0))
}

type recordingSink struct {
	mu   sync.Mutex
	rows map[int]int
}

func (s *recordingSink) SaveSeason(ctx context.Context, season provider.Season, d *Dataset) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[season.StartYear] = d.Len()
	return d.Len(), nil
}

func TestCorpus_Run(t *testing.T) {
	src := seasonFake(provider.Season{StartYear: 2020})
	more := seasonFake(provider.Season{StartYear: 2021})
	for k, v := range more.GameDates {
		src.GameDates[k] = v
	}
	for k, v := range more.Logs {
		src.Logs[k] = v
	}

	store := NewCSVStore(t.TempDir())
	sink := &recordingSink{rows: map[int]int{}}
	corpus := NewCorpus(newBuilder(src), store, sink, nil)
	corpus.Workers = 2

	result := corpus.Run(context.Background(), provider.Season{StartYear: 2021}, 2)
	require.NoError(t, result.Err())

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 4, result.CorpusRows)
	assert.Equal(t, store.Path("all_games_2020-22.csv"), result.CorpusFile)
	assert.Equal(t, 2020, result.Seasons[0].Season.StartYear)
	assert.Equal(t, map[int]int{2020: 2, 2021: 2}, sink.rows)
	assert.Contains(t, result.Summary(), "succeeded=2")

	corpusData, err := store.Load("all_games_2020-22.csv")
	require.NoError(t, err)
	assert.Equal(t, 2020, corpusData.Rows[0].Date.Year)
	assert.Equal(t, 2021, corpusData.Rows[3].Date.Year)

	manifest, err := store.LoadManifest()
	require.NoError(t, err)
	require.Len(t, manifest, 2)
	assert.Equal(t, ManifestEntry{Season: "2020-21", File: "games_2020-21.csv", Rows: 2, Start: "2020-10-19", End: "2020-10-21"}, manifest[0])
}

func TestCorpus_FailedSeasonSkipsMerge(t *testing.T) {
	src := seasonFake(provider.Season{StartYear: 2021})
	corpus := NewCorpus(newBuilder(src), NewCSVStore(t.TempDir()), nil, nil)

	result := corpus.Run(context.Background(), provider.Season{StartYear: 2021}, 2)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, result.CorpusFile)
	assert.Error(t, result.Err())
}

func TestCorpus_MergeMissingSeason(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	_, err := store.Save(labeledSet(SeasonName(provider.Season{StartYear: 2021}), date(2021, 10, 19)))
	require.NoError(t, err)

	corpus := NewCorpus(nil, store, nil, nil)
	_, _, err = corpus.Merge(provider.Season{StartYear: 2020}, provider.Season{StartYear: 2021})
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	merged, path, err := corpus.Merge(provider.Season{StartYear: 2021}, provider.Season{StartYear: 2021})
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Len())
	assert.Equal(t, store.Path("all_games_2021-22.csv"), path)
}
