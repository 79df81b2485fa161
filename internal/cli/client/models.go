package client

import (
	"context"
	"fmt"
	"net/http"
)

// Model represents a machine learning model registered on the backend
type Model struct {
	ID        int    `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	File      string `json:"file" yaml:"file"`
	Framework string `json:"framework" yaml:"framework"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

// Hyperparameter describes one positional input a model expects
type Hyperparameter struct {
	Position int    `json:"position" yaml:"position"`
	KeyHint  string `json:"key_hint" yaml:"key_hint"`
	DType    string `json:"dtype" yaml:"dtype"` // int, float, str
	Required bool   `json:"required" yaml:"required"`
	HelpText string `json:"help_text" yaml:"help_text"`
}

// ParamKey is the form field name the backend expects for this parameter
func (h Hyperparameter) ParamKey() string {
	return fmt.Sprintf("param_%d", h.Position)
}

// ListModels returns the available models
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	models, err := listResource[Model](ctx, c, resourceRequest{
		method:       http.MethodGet,
		endpoint:     "/api/v1/models/",
		requiresAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

// GetHyperparameters returns the hyperparameter schema of a model. All errors
// are returned to the caller.
func (c *Client) GetHyperparameters(ctx context.Context, modelID int) ([]Hyperparameter, error) {
	params, err := listResource[Hyperparameter](ctx, c, resourceRequest{
		method:       http.MethodGet,
		endpoint:     fmt.Sprintf("/api/v1/models/hyperparameters/%d/", modelID),
		requiresAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get hyperparameters for model %d: %w", modelID, err)
	}
	return params, nil
}
