package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Preprocessing job statuses. A failed job reports FAILED, unlike analyses.
const (
	JobPending = "PENDING"
	JobRunning = "RUNNING"
	JobSuccess = "SUCCESS"
	JobFailed  = "FAILED"
)

// PreprocessingJob is a cleaning pass over one of the user's datasets. The
// backend drops incomplete rows and stores the result in ResultFile.
type PreprocessingJob struct {
	ID           int    `json:"id" yaml:"id"`
	Dataset      int    `json:"dataset" yaml:"dataset"`
	Owner        string `json:"owner" yaml:"owner"`
	Status       string `json:"status" yaml:"status"`
	CreatedAt    string `json:"created_at" yaml:"created_at"`
	StartedAt    string `json:"started_at" yaml:"started_at"`
	FinishedAt   string `json:"finished_at" yaml:"finished_at"`
	Log          string `json:"log" yaml:"log"`
	ResultFile   string `json:"result_file" yaml:"result_file"`
	ErrorMessage string `json:"error_message" yaml:"error_message"`
}

// Finished reports whether the job reached a terminal status
func (j *PreprocessingJob) Finished() bool {
	return j.Status == JobSuccess || j.Status == JobFailed
}

// ListPreprocessingJobs returns the user's preprocessing jobs
func (c *Client) ListPreprocessingJobs(ctx context.Context) ([]PreprocessingJob, error) {
	jobs, err := listResource[PreprocessingJob](ctx, c, resourceRequest{
		method:       http.MethodGet,
		endpoint:     "/api/v1/preprocessing-jobs/",
		requiresAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list preprocessing jobs: %w", err)
	}
	return jobs, nil
}

// CreatePreprocessingJob queues preprocessing of a dataset the user owns
func (c *Client) CreatePreprocessingJob(ctx context.Context, datasetID int) (*PreprocessingJob, error) {
	if datasetID <= 0 {
		return nil, fmt.Errorf("invalid dataset id %d", datasetID)
	}

	var job PreprocessingJob
	err := c.do(ctx, resourceRequest{
		method:       http.MethodPost,
		endpoint:     "/api/v1/preprocessing-jobs/",
		body:         map[string]int{"dataset": datasetID},
		requiresAuth: true,
	}, &job)
	if err != nil {
		return nil, fmt.Errorf("failed to create preprocessing job: %w", err)
	}

	c.logger.Info().Int("job_id", job.ID).Int("dataset_id", datasetID).Msg("Preprocessing job created")
	return &job, nil
}

// GetPreprocessingJob returns a single preprocessing job
func (c *Client) GetPreprocessingJob(ctx context.Context, id int) (*PreprocessingJob, error) {
	var job PreprocessingJob
	err := c.do(ctx, resourceRequest{
		method:       http.MethodGet,
		endpoint:     fmt.Sprintf("/api/v1/preprocessing-jobs/%d/", id),
		requiresAuth: true,
	}, &job)
	if err != nil {
		return nil, fmt.Errorf("failed to get preprocessing job %d: %w", id, err)
	}
	return &job, nil
}

// WaitForPreprocessingJob polls a job until it succeeds or fails
func (c *Client) WaitForPreprocessingJob(ctx context.Context, id int, interval time.Duration) (*PreprocessingJob, error) {
	return poll(ctx, interval, func(ctx context.Context) (*PreprocessingJob, bool, error) {
		job, err := c.GetPreprocessingJob(ctx, id)
		if err != nil {
			return nil, false, err
		}
		c.logger.Debug().Int("job_id", id).Str("status", job.Status).Msg("Polled preprocessing job")
		return job, job.Finished(), nil
	})
}
