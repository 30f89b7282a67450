package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-predict/internal/cache"
	"github.com/albapepper/scoracle-predict/internal/config"
	"github.com/albapepper/scoracle-predict/internal/features"
	"github.com/albapepper/scoracle-predict/internal/matchup"
	"github.com/albapepper/scoracle-predict/internal/provider"
	"github.com/albapepper/scoracle-predict/internal/store"
)

type fakeRows struct {
	seasons  []store.SeasonSummary
	rows     map[provider.Season][]features.Row
	pingErr  error
	rowCalls int
}

func (f *fakeRows) Seasons(ctx context.Context) ([]store.SeasonSummary, error) {
	return f.seasons, nil
}

func (f *fakeRows) Rows(ctx context.Context, season provider.Season) ([]features.Row, error) {
	f.rowCalls++
	return f.rows[season], nil
}

func (f *fakeRows) Ping(ctx context.Context) error { return f.pingErr }

func newTestRouter(t *testing.T, rows *fakeRows, rateLimit bool) http.Handler {
	t.Helper()
	c := cache.New(true)
	t.Cleanup(c.Close)
	cfg := &config.Config{
		CORSAllowOrigins:  []string{"http://localhost:3000"},
		RateLimitEnabled:  rateLimit,
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	}
	return NewRouter(rows, c, cfg, nil)
}

func get(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSeasonRows_ServesAndCaches(t *testing.T) {
	season := provider.Season{StartYear: 2021}
	rows := &fakeRows{rows: map[provider.Season][]features.Row{
		season: {{Date: civil.Date{Year: 2021, Month: 10, Day: 19}, Home: "Milwaukee Bucks", Away: "Brooklyn Nets", Outcome: matchup.HomeWin}},
	}}
	router := newTestRouter(t, rows, false)

	rec := get(t, router, "/api/v1/seasons/2021-22/rows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	var body struct {
		Season  string     `json:"season"`
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2021-22", body.Season)
	assert.Len(t, body.Columns, features.LabeledWidth)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "Milwaukee Bucks", body.Rows[0][0])
	assert.Equal(t, "10/19/2021", body.Rows[0][29])

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = get(t, router, "/api/v1/seasons/2021-22/rows", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = get(t, router, "/api/v1/seasons/2021-22/rows", nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, rows.rowCalls)
}

func TestSeasonRows_CSV(t *testing.T) {
	season := provider.Season{StartYear: 2021}
	rows := &fakeRows{rows: map[provider.Season][]features.Row{
		season: {{Date: civil.Date{Year: 2021, Month: 10, Day: 19}, Home: "Milwaukee Bucks", Away: "Brooklyn Nets", Outcome: matchup.HomeWin}},
	}}
	router := newTestRouter(t, rows, false)

	rec := get(t, router, "/api/v1/seasons/2021-22/rows?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "games_2021-22.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(features.Columns(true), ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Milwaukee Bucks,Brooklyn Nets,"))
	assert.True(t, strings.HasSuffix(lines[1], ",10/19/2021"))

	// JSON and CSV bodies are cached separately.
	rec = get(t, router, "/api/v1/seasons/2021-22/rows", http.Header{"Accept": {"text/csv"}})
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	rec = get(t, router, "/api/v1/seasons/2021-22/rows", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 2, rows.rowCalls)

	rec = get(t, router, "/api/v1/seasons/2021-22/rows?format=xml", nil)
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"formats":["json","csv"]`)
}

func TestSeasonRows_Errors(t *testing.T) {
	router := newTestRouter(t, &fakeRows{}, false)

	rec := get(t, router, "/api/v1/seasons/2021-23/rows", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_SEASON")

	rec = get(t, router, "/api/v1/seasons/1999-00/rows", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSeasons(t *testing.T) {
	rows := &fakeRows{seasons: []store.SeasonSummary{{Season: "2021-22", Rows: 1230, Labeled: 1230}}}
	router := newTestRouter(t, rows, false)

	rec := get(t, router, "/api/v1/seasons", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"season":"2021-22"`)
	assert.Contains(t, rec.Body.String(), `"rows":1230`)
}

func TestHealthDB(t *testing.T) {
	rows := &fakeRows{}
	router := newTestRouter(t, rows, false)
	assert.Equal(t, http.StatusOK, get(t, router, "/health/db", nil).Code)

	rows.pingErr = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/health/db", nil).Code)
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, &fakeRows{}, true)

	assert.Equal(t, http.StatusOK, get(t, router, "/health", nil).Code)
	rec := get(t, router, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
