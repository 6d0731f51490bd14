package cli

import (
	"errors"

	"github.com/2lenet/sulu/internal/config"
	"github.com/2lenet/sulu/internal/mapper"
	"github.com/2lenet/sulu/internal/store"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Configuration errors
	ErrConfigInvalid    = "CONFIG_INVALID"
	ErrWebspaceNotFound = "WEBSPACE_NOT_FOUND"

	// Database errors
	ErrDatabaseError    = "DATABASE_ERROR"
	ErrDatabaseNotFound = "DATABASE_NOT_FOUND"
	ErrPageNotFound     = "PAGE_NOT_FOUND"

	// File errors
	ErrFileReadError     = "FILE_READ_ERROR"
	ErrFileWriteError    = "FILE_WRITE_ERROR"
	ErrUnsupportedFormat = "UNSUPPORTED_FORMAT"

	// Query errors
	ErrQueryInvalid  = "QUERY_INVALID"
	ErrRequiredField = "REQUIRED_FIELD_MISSING"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"
)

// errSilent signals a failure that was already reported as JSON.
var errSilent = errors.New("silent")

// queryErrorCode classifies a failure of the query pipeline.
func queryErrorCode(err error) string {
	var missing *mapper.MissingFieldError
	switch {
	case errors.As(err, &missing):
		return ErrRequiredField
	case errors.Is(err, config.ErrWebspaceNotFound):
		return ErrWebspaceNotFound
	case errors.Is(err, store.ErrEmptyStatement), errors.Is(err, store.ErrUnsupportedLanguage):
		return ErrQueryInvalid
	}
	return ErrQueryInvalid
}
