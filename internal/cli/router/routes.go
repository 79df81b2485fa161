// Package router holds the route table of the client and the guard that gates
// protected routes on the presence of a session token.
package router

import (
	"context"
	"io"
)

// Paths of the client's views
const (
	PathHome           = "/"
	PathLogin          = "/login"
	PathRegister       = "/register"
	PathDatasets       = "/datasets"
	PathDatasetUpload  = "/datasets/upload"
	PathModels         = "/models"
	PathModelsAnalysis = "/models/analysis"
	PathResults        = "/results"
)

// View renders one route to out.
type View func(ctx context.Context, out io.Writer) error

// Route is one entry of the route table
type Route struct {
	Path         string
	Name         string
	RequiresAuth bool
	View         View
}

// Routes returns the route table. Views are bound by the caller.
func Routes() []Route {
	return []Route{
		{Path: PathHome, Name: "home", RequiresAuth: true},
		{Path: PathLogin, Name: "login"},
		{Path: PathRegister, Name: "register"},
		{Path: PathDatasets, Name: "datasets", RequiresAuth: true},
		{Path: PathDatasetUpload, Name: "dataset-upload", RequiresAuth: true},
		{Path: PathModels, Name: "models", RequiresAuth: true},
		{Path: PathModelsAnalysis, Name: "models-analysis", RequiresAuth: true},
		{Path: PathResults, Name: "results", RequiresAuth: true},
	}
}
