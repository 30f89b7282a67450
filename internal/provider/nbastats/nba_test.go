package nbastats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, 0, nil)
}

func TestClient_Teams_KeepsCurrentIdentity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/franchisehistory", r.URL.Path)
		assert.Equal(t, "https://www.nba.com/", r.Header.Get("Referer"))
		_, _ = w.Write([]byte(`{"resultSets":[{"name":"FranchiseHistory",
			"headers":["LEAGUE_ID","TEAM_ID","TEAM_CITY","TEAM_NAME","START_YEAR","END_YEAR"],
			"rowSet":[
				["00",1610612746,"Buffalo","Braves","1970","1978"],
				["00",1610612746,"Los Angeles","Clippers","1984","2024"],
				["00",1610612738,"Boston","Celtics","1946","2024"]
			]}]}`))
	})

	teams, err := c.Teams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []provider.Team{
		{ID: 1610612746, Name: "Los Angeles Clippers"},
		{ID: 1610612738, Name: "Boston Celtics"},
	}, teams)
}

func TestClient_TeamDashboard(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/teamdashboardbygeneralsplits", r.URL.Path)
		assert.Equal(t, "10/19/2021", q.Get("DateFrom"))
		assert.Equal(t, "11/02/2021", q.Get("DateTo"))
		assert.Equal(t, "Per100Possessions", q.Get("PerMode"))
		assert.Equal(t, "Base", q.Get("MeasureType"))
		assert.Equal(t, "2021-22", q.Get("Season"))
		assert.Equal(t, "1610612738", q.Get("TeamID"))
		_, _ = w.Write([]byte(`{"resultSets":[{"name":"OverallTeamDashboard",
			"headers":["GROUP_SET","W_PCT","FG_PCT","REB"],
			"rowSet":[["Overall",0.6,0.471,"44.5"]]}]}`))
	})

	dash, err := c.TeamDashboard(context.Background(), provider.DashboardQuery{
		TeamID:  1610612738,
		Season:  provider.Season{StartYear: 2021},
		From:    civil.Date{Year: 2021, Month: 10, Day: 19},
		To:      civil.Date{Year: 2021, Month: 11, Day: 2},
		Measure: provider.MeasureBase,
		PerMode: provider.PerModePer100,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, dash["W_PCT"], 1e-9)
	assert.InDelta(t, 44.5, dash["REB"], 1e-9)
	assert.NotContains(t, dash, "GROUP_SET")
}

func TestClient_TeamDashboard_EmptyIsNoRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultSets":[{"name":"OverallTeamDashboard","headers":["W_PCT"],"rowSet":[]}]}`))
	})

	_, err := c.TeamDashboard(context.Background(), provider.DashboardQuery{TeamID: 1, Measure: provider.MeasureAdvanced})
	assert.ErrorIs(t, err, provider.ErrNoRows)
}

func TestClient_Scoreboard(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "01/10/2024", r.URL.Query().Get("GameDate"))
		_, _ = w.Write([]byte(`{"resultSets":[
			{"name":"GameHeader","headers":["GAME_DATE_EST","GAME_ID","HOME_TEAM_ID","VISITOR_TEAM_ID"],
			 "rowSet":[["2024-01-10T00:00:00","0022300555",1,2]]},
			{"name":"LineScore","headers":[],"rowSet":[]}]}`))
	})

	day := civil.Date{Year: 2024, Month: 1, Day: 10}
	games, err := c.Scoreboard(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, []provider.ScheduledGame{{GameID: "0022300555", Date: day, HomeTeamID: 1, AwayTeamID: 2}}, games)
}

func TestClient_GameLog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, q.Get("DateFrom"), q.Get("DateTo"))
		assert.Equal(t, "T", q.Get("PlayerOrTeam"))
		_, _ = w.Write([]byte(`{"resultSets":[{"name":"LeagueGameLog",
			"headers":["TEAM_ID","TEAM_NAME","GAME_ID","GAME_DATE","MATCHUP","WL"],
			"rowSet":[
				[1610612749,"Milwaukee Bucks","0022100001","2021-10-19","MIL vs. BKN","W"],
				[1610612751,"Brooklyn Nets","0022100001","2021-10-19","BKN @ MIL","L"]
			]}]}`))
	})

	day := civil.Date{Year: 2021, Month: 10, Day: 19}
	records, err := c.GameLog(context.Background(), provider.Season{StartYear: 2021}, day)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1610612749, records[0].TeamID)
	assert.True(t, records[0].IsHome())
	assert.Equal(t, day, records[1].Date)
	assert.Equal(t, "Brooklyn Nets", records[1].TeamName)
}

func TestClient_SeasonGameDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultSets":[{"name":"LeagueGameFinderResults",
			"headers":["TEAM_ID","GAME_DATE"],
			"rowSet":[[1,"2022-04-10"],[2,"2021-10-19"]]}]}`))
	})

	dates, err := c.SeasonGameDates(context.Background(), provider.Season{StartYear: 2021})
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{
		{Year: 2022, Month: 4, Day: 10},
		{Year: 2021, Month: 10, Day: 19},
	}, dates)
}

func TestClient_StatusClassification(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte("nope"))
	})

	_, err := c.Scoreboard(context.Background(), civil.Date{Year: 2024, Month: 1, Day: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrPermanent))

	status.Store(http.StatusServiceUnavailable)
	_, err = c.Scoreboard(context.Background(), civil.Date{Year: 2024, Month: 1, Day: 10})
	require.Error(t, err)
	assert.False(t, errors.Is(err, provider.ErrPermanent))
}

func TestClient_MissingResultSet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultSets":[]}`))
	})

	_, err := c.GameLog(context.Background(), provider.Season{StartYear: 2021}, civil.Date{Year: 2021, Month: 10, Day: 19})
	assert.ErrorContains(t, err, "LeagueGameLog")
}
