package services

import (
	"errors"

	"github.com/protikmukherjee/fire-prediction-api/internal/features"
)

// ErrHistoryDisabled is returned when no history backend is configured
var ErrHistoryDisabled = errors.New("prediction history is not enabled")

// IsClientError reports whether err was caused by the request payload rather than the service
func IsClientError(err error) bool {
	var missing *features.MissingFieldError
	return errors.Is(err, features.ErrInvalidPayload) || errors.As(err, &missing)
}
