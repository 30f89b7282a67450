package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/albapepper/scoracle-predict/internal/features"
)

// Classifier maps feature vectors (features.FeatureColumns order) to binary
// labels, one per row.
type Classifier interface {
	Classify(ctx context.Context, rows [][]float64) ([]int, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, rows [][]float64) ([]int, error)

func (f ClassifierFunc) Classify(ctx context.Context, rows [][]float64) ([]int, error) {
	return f(ctx, rows)
}

// HTTPClassifier calls a model server that accepts
// {"columns": [...], "rows": [[...]]} and answers {"labels": [...]}.
type HTTPClassifier struct {
	httpClient *http.Client
	url        string
	logger     *slog.Logger
}

func NewHTTPClassifier(url string, timeout time.Duration, logger *slog.Logger) *HTTPClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClassifier{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		logger:     logger,
	}
}

type classifyRequest struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type classifyResponse struct {
	Labels []int `json:"labels"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, rows [][]float64) ([]int, error) {
	body, err := json.Marshal(classifyRequest{Columns: features.FeatureColumns(), Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier status %d: %s", resp.StatusCode, msg)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Labels) != len(rows) {
		return nil, fmt.Errorf("%d rows, %d labels: %w", len(rows), len(out.Labels), ErrClassifierMismatch)
	}
	c.logger.Debug("Classifier answered", "rows", len(rows))
	return out.Labels, nil
}
