package nbastats

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

const (
	leagueNBA         = "00"
	seasonTypeRegular = "Regular Season"
)

// Compile-time check that the client satisfies the pipeline's source contract.
var _ provider.Source = (*Client)(nil)

// --------------------------------------------------------------------------
// Team directory
// --------------------------------------------------------------------------

// Teams returns the current identity of every active franchise. The
// franchise history lists one row per name a franchise has used; the row
// with the latest END_YEAR is the current one.
func (c *Client) Teams(ctx context.Context) ([]provider.Team, error) {
	resp, err := c.get(ctx, "franchisehistory", url.Values{"LeagueID": {leagueNBA}})
	if err != nil {
		return nil, fmt.Errorf("fetch franchise history: %w", err)
	}
	set, err := resp.set("FranchiseHistory")
	if err != nil {
		return nil, err
	}

	type current struct {
		team    provider.Team
		endYear float64
	}
	byID := make(map[int]current)
	var order []int
	for _, row := range set.rows() {
		id, ok := intValue(row["TEAM_ID"])
		if !ok {
			continue
		}
		name := strings.TrimSpace(stringValue(row["TEAM_CITY"]) + " " + stringValue(row["TEAM_NAME"]))
		end, _ := provider.ExtractValue(row["END_YEAR"])

		existing, seen := byID[id]
		if !seen {
			order = append(order, id)
		}
		if !seen || end > existing.endYear {
			byID[id] = current{team: provider.Team{ID: id, Name: name}, endYear: end}
		}
	}

	teams := make([]provider.Team, 0, len(order))
	for _, id := range order {
		teams = append(teams, byID[id].team)
	}
	return teams, nil
}

// --------------------------------------------------------------------------
// Team dashboard
// --------------------------------------------------------------------------

// TeamDashboard returns the overall row of a team's general-splits dashboard.
func (c *Client) TeamDashboard(ctx context.Context, q provider.DashboardQuery) (provider.Dashboard, error) {
	perMode := q.PerMode
	if perMode == "" {
		perMode = provider.PerModeTotals
	}
	params := url.Values{
		"DateFrom":       {provider.FormatDate(q.From)},
		"DateTo":         {provider.FormatDate(q.To)},
		"GameSegment":    {""},
		"LastNGames":     {"0"},
		"LeagueID":       {leagueNBA},
		"Location":       {""},
		"MeasureType":    {string(q.Measure)},
		"Month":          {"0"},
		"OpponentTeamID": {"0"},
		"Outcome":        {""},
		"PORound":        {"0"},
		"PaceAdjust":     {"N"},
		"PerMode":        {string(perMode)},
		"Period":         {"0"},
		"PlusMinus":      {"N"},
		"Rank":           {"N"},
		"Season":         {q.Season.String()},
		"SeasonSegment":  {""},
		"SeasonType":     {seasonTypeRegular},
		"ShotClockRange": {""},
		"TeamID":         {strconv.Itoa(q.TeamID)},
		"VsConference":   {""},
		"VsDivision":     {""},
	}

	resp, err := c.get(ctx, "teamdashboardbygeneralsplits", params)
	if err != nil {
		return nil, fmt.Errorf("fetch %s dashboard team=%d: %w", q.Measure, q.TeamID, err)
	}
	set, err := resp.set("OverallTeamDashboard")
	if err != nil {
		return nil, err
	}
	rows := set.rows()
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s dashboard team=%d %s..%s: %w",
			q.Measure, q.TeamID, q.From, q.To, provider.ErrNoRows)
	}

	dash := make(provider.Dashboard, len(rows[0]))
	for k, v := range rows[0] {
		if f, ok := provider.ExtractValue(v); ok {
			dash[k] = f
		}
	}
	return dash, nil
}

// --------------------------------------------------------------------------
// Schedule
// --------------------------------------------------------------------------

// Scoreboard returns the games scheduled on date.
func (c *Client) Scoreboard(ctx context.Context, date civil.Date) ([]provider.ScheduledGame, error) {
	params := url.Values{
		"DayOffset": {"0"},
		"GameDate":  {provider.FormatDate(date)},
		"LeagueID":  {leagueNBA},
	}
	resp, err := c.get(ctx, "scoreboardv2", params)
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard %s: %w", date, err)
	}
	set, err := resp.set("GameHeader")
	if err != nil {
		return nil, err
	}

	rows := set.rows()
	games := make([]provider.ScheduledGame, 0, len(rows))
	for _, row := range rows {
		home, okHome := intValue(row["HOME_TEAM_ID"])
		away, okAway := intValue(row["VISITOR_TEAM_ID"])
		if !okHome || !okAway {
			c.logger.Warn("scoreboard row without team ids", "date", date.String(), "game_id", row["GAME_ID"])
			continue
		}
		games = append(games, provider.ScheduledGame{
			GameID:     stringValue(row["GAME_ID"]),
			Date:       date,
			HomeTeamID: home,
			AwayTeamID: away,
		})
	}
	return games, nil
}

// --------------------------------------------------------------------------
// Game log
// --------------------------------------------------------------------------

// GameLog returns the team-level log of games completed on date.
func (c *Client) GameLog(ctx context.Context, season provider.Season, date civil.Date) ([]provider.GameLogRecord, error) {
	day := provider.FormatDate(date)
	params := url.Values{
		"Counter":      {"0"},
		"DateFrom":     {day},
		"DateTo":       {day},
		"Direction":    {"ASC"},
		"LeagueID":     {leagueNBA},
		"PlayerOrTeam": {"T"},
		"Season":       {season.String()},
		"SeasonType":   {seasonTypeRegular},
		"Sorter":       {"DATE"},
	}
	resp, err := c.get(ctx, "leaguegamelog", params)
	if err != nil {
		return nil, fmt.Errorf("fetch game log %s: %w", date, err)
	}
	set, err := resp.set("LeagueGameLog")
	if err != nil {
		return nil, err
	}

	rows := set.rows()
	records := make([]provider.GameLogRecord, 0, len(rows))
	for _, row := range rows {
		teamID, _ := intValue(row["TEAM_ID"])
		gameDate, err := parseGameDate(stringValue(row["GAME_DATE"]))
		if err != nil {
			gameDate = date
		}
		records = append(records, provider.GameLogRecord{
			GameID:   stringValue(row["GAME_ID"]),
			Date:     gameDate,
			TeamID:   teamID,
			TeamName: stringValue(row["TEAM_NAME"]),
			Matchup:  stringValue(row["MATCHUP"]),
			WL:       stringValue(row["WL"]),
		})
	}
	return records, nil
}

// --------------------------------------------------------------------------
// Season game finder
// --------------------------------------------------------------------------

// SeasonGameDates returns the date of every regular-season game row.
func (c *Client) SeasonGameDates(ctx context.Context, season provider.Season) ([]civil.Date, error) {
	params := url.Values{
		"LeagueID":     {leagueNBA},
		"PlayerOrTeam": {"T"},
		"Season":       {season.String()},
		"SeasonType":   {seasonTypeRegular},
	}
	resp, err := c.get(ctx, "leaguegamefinder", params)
	if err != nil {
		return nil, fmt.Errorf("fetch season games %s: %w", season, err)
	}
	set, err := resp.set("LeagueGameFinderResults")
	if err != nil {
		return nil, err
	}

	rows := set.rows()
	dates := make([]civil.Date, 0, len(rows))
	for _, row := range rows {
		d, err := parseGameDate(stringValue(row["GAME_DATE"]))
		if err != nil {
			return nil, fmt.Errorf("season %s: %w", season, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// --------------------------------------------------------------------------
// Cell helpers
// --------------------------------------------------------------------------

// parseGameDate accepts "2022-04-10" and "2022-04-10T00:00:00".
func parseGameDate(v string) (civil.Date, error) {
	if len(v) < 10 {
		return civil.Date{}, fmt.Errorf("invalid game date %q", v)
	}
	d, err := civil.ParseDate(v[:10])
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid game date %q: %w", v, err)
	}
	return d, nil
}

func intValue(v interface{}) (int, bool) {
	f, ok := provider.ExtractValue(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
