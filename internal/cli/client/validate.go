package client

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// datasetExtensions are the file types the backend accepts for datasets
var datasetExtensions = map[string]bool{
	".csv":  true,
	".json": true,
}

func newValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterValidation("dataset_file", func(fl validator.FieldLevel) bool {
		ext := strings.ToLower(filepath.Ext(fl.Field().String()))
		return datasetExtensions[ext]
	})

	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return validate
}
