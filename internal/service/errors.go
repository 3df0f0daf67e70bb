package service

import (
	"errors"
	"fmt"
)

// ErrRunInProgress means another import run currently holds the pipeline.
// Runs are strictly serialized against the shared dataset tables.
var ErrRunInProgress = errors.New("an import run is already in progress")

// ValidationError is a bad request caught before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
