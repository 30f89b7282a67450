package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the upstream and dataset date format (MM/DD/YYYY).
const DateLayout = "01/02/2006"

// Season identifies an NBA season by the calendar year it starts in.
type Season struct {
	StartYear int
}

// String renders the season the way the provider expects it ("2021-22").
func (s Season) String() string {
	return fmt.Sprintf("%d-%02d", s.StartYear, (s.StartYear+1)%100)
}

// Next returns the season after s.
func (s Season) Next() Season { return Season{StartYear: s.StartYear + 1} }

// EndYear returns the calendar year the season ends in.
func (s Season) EndYear() int { return s.StartYear + 1 }

// ParseSeason parses "2021-22". The two-digit suffix must follow the start year.
func ParseSeason(v string) (Season, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(v), "-")
	if !ok || len(start) != 4 || len(end) != 2 {
		return Season{}, fmt.Errorf("invalid season %q: want YYYY-YY", v)
	}
	y, err := strconv.Atoi(start)
	if err != nil {
		return Season{}, fmt.Errorf("invalid season %q: %w", v, err)
	}
	e, err := strconv.Atoi(end)
	if err != nil {
		return Season{}, fmt.Errorf("invalid season %q: %w", v, err)
	}
	if (y+1)%100 != e {
		return Season{}, fmt.Errorf("invalid season %q: %02d does not follow %d", v, e, y)
	}
	return Season{StartYear: y}, nil
}

// SeasonForDate returns the season a calendar day belongs to. Seasons start
// in October, so January through September belong to the season that
// started the previous year.
func SeasonForDate(d civil.Date) Season {
	if d.Month < time.October {
		return Season{StartYear: d.Year - 1}
	}
	return Season{StartYear: d.Year}
}

// ParseDate parses a MM/DD/YYYY date. Impossible dates such as 02/30/2022
// are rejected by the calendar, not by string checks.
func ParseDate(v string) (civil.Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(v))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: want MM/DD/YYYY: %w", v, err)
	}
	return civil.DateOf(t), nil
}

// FormatDate renders d as MM/DD/YYYY.
func FormatDate(d civil.Date) string {
	return d.In(time.UTC).Format(DateLayout)
}
