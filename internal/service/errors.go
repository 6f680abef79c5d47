package service

import (
	"errors"
	"fmt"
)

var (
	// ErrJobRunning is returned when an export job is triggered while a
	// previous run of the same job has not finished.
	ErrJobRunning = errors.New("export job is already running")

	// ErrInvalidInput marks requests rejected by validation.
	ErrInvalidInput = errors.New("invalid input")
)

// invalid tags err as a validation failure, keeping its own chain.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
