package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/autoleech/internal/monitor"
)

// ErrNoJournal indicates the delivery journal is not configured.
var ErrNoJournal = errors.New("delivery journal is not configured")

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validation *ErrValidation
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, monitor.ErrAlreadyRunning), errors.Is(err, monitor.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, monitor.ErrMisconfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNoJournal):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
