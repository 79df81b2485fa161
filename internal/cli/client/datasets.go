package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Dataset represents an uploaded dataset
type Dataset struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	File        string `json:"file" yaml:"file"`
	Owner       string `json:"owner" yaml:"owner"`
	CreatedAt   string `json:"created_at" yaml:"created_at"`
}

// DatasetUpload is the form sent to create a dataset
type DatasetUpload struct {
	Name        string    `validate:"required,notblank,max=100"`
	Description string    `validate:"max=500"`
	FileName    string    `validate:"required,dataset_file"`
	File        io.Reader `validate:"required"`
}

// ListDatasets returns the datasets owned by the authenticated user
func (c *Client) ListDatasets(ctx context.Context) ([]Dataset, error) {
	datasets, err := listResource[Dataset](ctx, c, resourceRequest{
		method:       http.MethodGet,
		endpoint:     "/api/v1/datasets/",
		requiresAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

// GetDataset returns a single dataset
func (c *Client) GetDataset(ctx context.Context, id int) (*Dataset, error) {
	var dataset Dataset
	err := c.do(ctx, resourceRequest{
		method:       http.MethodGet,
		endpoint:     fmt.Sprintf("/api/v1/datasets/%d/", id),
		requiresAuth: true,
	}, &dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset %d: %w", id, err)
	}
	return &dataset, nil
}

// UploadDataset creates a dataset with a multipart form holding exactly
// name, description and file.
func (c *Client) UploadDataset(ctx context.Context, upload DatasetUpload) (*Dataset, error) {
	upload.Name = strings.TrimSpace(upload.Name)
	if err := c.validate.Struct(upload); err != nil {
		return nil, fmt.Errorf("invalid dataset upload: %w", err)
	}

	var dataset Dataset
	err := c.do(ctx, resourceRequest{
		method:   http.MethodPost,
		endpoint: "/api/v1/datasets/",
		form: &multipartForm{
			fields: [][2]string{
				{"name", upload.Name},
				{"description", upload.Description},
			},
			fileName: upload.FileName,
			file:     upload.File,
		},
		requiresAuth: true,
	}, &dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to upload dataset: %w", err)
	}

	c.logger.Info().Int("dataset_id", dataset.ID).Str("name", dataset.Name).Msg("Dataset uploaded")
	return &dataset, nil
}

// DeleteDataset deletes a dataset by ID
func (c *Client) DeleteDataset(ctx context.Context, id int) error {
	err := c.do(ctx, resourceRequest{
		method:       http.MethodDelete,
		endpoint:     fmt.Sprintf("/api/v1/datasets/%d/", id),
		requiresAuth: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to delete dataset %d: %w", id, err)
	}
	return nil
}
