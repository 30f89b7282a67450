// Package nbastats provides the HTTP client for the stats.nba.com endpoints
// the dataset pipeline consumes.
//
// Every endpoint answers with a list of named result sets, each a header row
// plus positional rows. Requests are paced by a token bucket limiter so a
// season build does not trip the provider's throttling.
package nbastats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

// DefaultBaseURL is the public stats endpoint root.
const DefaultBaseURL = "https://stats.nba.com/stats"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client is the shared HTTP client for all stats endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a stats client with rate limiting. A non-positive
// requestsPerMinute disables pacing.
func NewClient(baseURL string, timeout time.Duration, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// resultSet is one named table of a stats response.
type resultSet struct {
	Name    string          `json:"name"`
	Headers []string        `json:"headers"`
	RowSet  [][]interface{} `json:"rowSet"`
}

// response is the common stats wrapper. Most endpoints use resultSets; a few
// older ones answer with a single resultSet object.
type response struct {
	ResultSets []resultSet `json:"resultSets"`
	ResultSet  *resultSet  `json:"resultSet"`
}

// set returns the result set with the given name.
func (r *response) set(name string) (*resultSet, error) {
	for i := range r.ResultSets {
		if r.ResultSets[i].Name == name {
			return &r.ResultSets[i], nil
		}
	}
	if r.ResultSet != nil && r.ResultSet.Name == name {
		return r.ResultSet, nil
	}
	return nil, fmt.Errorf("result set %q missing from response", name)
}

// rows returns every row keyed by header, like a normalized dict.
func (s *resultSet) rows() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(s.RowSet))
	for _, raw := range s.RowSet {
		row := make(map[string]interface{}, len(s.Headers))
		for i, h := range s.Headers {
			if i < len(raw) {
				row[h] = raw[i]
			}
		}
		out = append(out, row)
	}
	return out
}

// get performs a rate-limited GET request to a stats endpoint.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w: %w", err, provider.ErrPermanent)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://www.nba.com/")
	req.Header.Set("Origin", "https://www.nba.com")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-nba-stats-origin", "stats")
	req.Header.Set("x-nba-stats-token", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("nba stats %s returned %d: %s", endpoint, resp.StatusCode, truncate(body, 200))
		if !isRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: %w", err, provider.ErrPermanent)
		}
		return nil, err
	}

	var result response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("nba stats request", "endpoint", endpoint, "bytes", len(body))
	return &result, nil
}

// isRetryableStatus reports whether a non-200 status is worth another attempt.
func isRetryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
