// Package server provides the HTTP API for the resume analyzer.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-analyzer/internal/document"
	"github.com/jonathan/resume-analyzer/internal/fetch"
	"github.com/jonathan/resume-analyzer/internal/ingestion"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates the requested analysis does not exist
type ErrNotFound struct {
	AnalysisID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("analysis not found: %s", e.AnalysisID)
}

// ErrUnavailable indicates an endpoint whose backing service is not configured
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured", e.Feature)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		inputErr      *pipeline.InputError
		notFoundErr   *ErrNotFound
		unavailable   *ErrUnavailable
		tooLarge      *http.MaxBytesError
		extractionErr *document.ExtractionError
		stageErr      *pipeline.StageError
		fetchErr      *fetch.Error
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &inputErr), errors.Is(err, ingestion.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &extractionErr),
		errors.Is(err, ingestion.ErrEmptyContent),
		errors.Is(err, ingestion.ErrContentExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &stageErr), errors.As(err, &fetchErr), errors.Is(err, ingestion.ErrHTTPRequestFailed):
		return http.StatusBadGateway
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
