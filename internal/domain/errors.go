package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the integration pipeline. Callers match with errors.Is.
var (
	// ErrAuthFailure marks a failed credential exchange with an upstream
	// system.
	ErrAuthFailure = errors.New("upstream authentication failed")

	// ErrDecode marks an upstream response body that could not be decoded,
	// as opposed to the upstream being unreachable.
	ErrDecode = errors.New("upstream response not decodable")

	// ErrPublish marks a broker publish that was rejected or unreachable.
	ErrPublish = errors.New("broker publish failed")

	// ErrNotFound marks a referenced external id that is absent where
	// presence is required.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed ingestion or add-customer input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
