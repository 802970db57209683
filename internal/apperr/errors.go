// Package apperr defines sentinel errors shared across the application.
package apperr

import "errors"

var (
	// ErrStateDbMissing guards destructive legacy-file cleanup: deletion is
	// refused until a state database exists to fall back on.
	ErrStateDbMissing = errors.New("state database does not exist")
)
