package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Analysis statuses reported by the backend
const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// AnalysisResult is one run of a model over a dataset
type AnalysisResult struct {
	ID           int            `json:"id" yaml:"id"`
	Dataset      int            `json:"dataset" yaml:"dataset"`
	Model        int            `json:"model" yaml:"model"`
	Parameters   map[string]any `json:"parameters" yaml:"parameters"`
	Status       string         `json:"status" yaml:"status"`
	Metrics      map[string]any `json:"metrics" yaml:"metrics"`
	OutputPath   string         `json:"output_path" yaml:"output_path"`
	ErrorMessage string         `json:"error_message" yaml:"error_message"`
	CreatedAt    string         `json:"created_at" yaml:"created_at"`
	UpdatedAt    string         `json:"updated_at" yaml:"updated_at"`
}

// Finished reports whether the analysis reached a terminal status
func (r *AnalysisResult) Finished() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailure
}

// AnalysisFilter narrows ListAnalysisResults. Zero values are not sent.
type AnalysisFilter struct {
	Status        string
	Model         int
	Dataset       int
	CreatedAfter  time.Time
	CreatedBefore time.Time
}

func (f AnalysisFilter) values() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", strings.ToUpper(f.Status))
	}
	if f.Model != 0 {
		q.Set("model", strconv.Itoa(f.Model))
	}
	if f.Dataset != 0 {
		q.Set("dataset", strconv.Itoa(f.Dataset))
	}
	if !f.CreatedAfter.IsZero() {
		q.Set("created_after", f.CreatedAfter.Format(time.RFC3339))
	}
	if !f.CreatedBefore.IsZero() {
		q.Set("created_before", f.CreatedBefore.Format(time.RFC3339))
	}
	return q
}

// ListAnalysisResults returns the user's analyses, newest first. Every error
// is returned; on an authorization failure the session is cleared and the
// result is nil.
func (c *Client) ListAnalysisResults(ctx context.Context, filter AnalysisFilter) ([]AnalysisResult, error) {
	results, err := listResource[AnalysisResult](ctx, c, resourceRequest{
		method:       http.MethodGet,
		endpoint:     "/api/v1/analysis/",
		query:        filter.values(),
		requiresAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis results: %w", err)
	}
	return results, nil
}

// GetAnalysisResult returns a single analysis. All errors are returned.
func (c *Client) GetAnalysisResult(ctx context.Context, id int) (*AnalysisResult, error) {
	var result AnalysisResult
	err := c.do(ctx, resourceRequest{
		method:       http.MethodGet,
		endpoint:     fmt.Sprintf("/analisis/%d/", id),
		requiresAuth: true,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis result %d: %w", id, err)
	}
	return &result, nil
}

// GetLatestAnalysisID returns the ID of the user's most recent analysis
func (c *Client) GetLatestAnalysisID(ctx context.Context) (int, error) {
	var latest struct {
		LastAnalysisID *int `json:"last_analysis_id"`
	}
	err := c.do(ctx, resourceRequest{
		method:       http.MethodGet,
		endpoint:     "/analisis/ultimo",
		requiresAuth: true,
	}, &latest)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest analysis: %w", err)
	}
	if latest.LastAnalysisID == nil {
		return 0, ErrNoAnalyses
	}
	return *latest.LastAnalysisID, nil
}

// LaunchAnalysisRequest starts a model run over a dataset. Params are keyed by
// hyperparameter position and sent as param_<position>.
type LaunchAnalysisRequest struct {
	Model   int            `validate:"required,gt=0"`
	Dataset int            `validate:"required,gt=0"`
	Params  map[int]string
}

func (r LaunchAnalysisRequest) body() map[string]any {
	body := map[string]any{
		"model":   r.Model,
		"dataset": r.Dataset,
	}
	positions := make([]int, 0, len(r.Params))
	for pos := range r.Params {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	for _, pos := range positions {
		body[fmt.Sprintf("param_%d", pos)] = r.Params[pos]
	}
	return body
}

// LaunchAnalysis queues a new analysis; the backend answers 202 with the
// pending result.
func (c *Client) LaunchAnalysis(ctx context.Context, req LaunchAnalysisRequest) (*AnalysisResult, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid analysis request: %w", err)
	}
	for pos := range req.Params {
		if pos <= 0 {
			return nil, fmt.Errorf("invalid analysis request: parameter position %d must be positive", pos)
		}
	}

	var result AnalysisResult
	err := c.do(ctx, resourceRequest{
		method:       http.MethodPost,
		endpoint:     "/api/v1/analysis/",
		body:         req.body(),
		requiresAuth: true,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to launch analysis: %w", err)
	}

	c.logger.Info().Int("analysis_id", result.ID).Str("status", result.Status).Msg("Analysis launched")
	return &result, nil
}

// WaitForAnalysis polls an analysis until it succeeds or fails. The first
// error ends the wait; nothing is retried.
func (c *Client) WaitForAnalysis(ctx context.Context, id int, interval time.Duration) (*AnalysisResult, error) {
	return poll(ctx, interval, func(ctx context.Context) (*AnalysisResult, bool, error) {
		result, err := c.GetAnalysisResult(ctx, id)
		if err != nil {
			return nil, false, err
		}
		c.logger.Debug().Int("analysis_id", id).Str("status", result.Status).Msg("Polled analysis")
		return result, result.Finished(), nil
	})
}

// poll calls fetch every interval until it reports done. The first error ends
// the wait; on cancellation the last value fetched is returned with ctx.Err().
func poll[T any](ctx context.Context, interval time.Duration, fetch func(context.Context) (T, bool, error)) (T, error) {
	var zero T
	if interval <= 0 {
		return zero, errors.New("poll interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		value, done, err := fetch(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return value, nil
		}

		select {
		case <-ctx.Done():
			return value, ctx.Err()
		case <-ticker.C:
		}
	}
}
