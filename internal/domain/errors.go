package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSourceData means nothing is selected, nothing was uploaded, or the
	// captured preview is empty.
	ErrNoSourceData = errors.New("no source data to convert")

	// ErrInvalidMode means the conversion mode is not one of the four known modes.
	ErrInvalidMode = errors.New("invalid conversion type")

	// ErrNotFound is returned by stores and registries for unknown IDs.
	ErrNotFound = errors.New("not found")
)

// SourceIOError wraps a failure while reading from a database or an uploaded
// file. Source names the table, collection, file or connection involved.
type SourceIOError struct {
	Source string
	Err    error
}

func (e *SourceIOError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("source error: %v", e.Err)
	}
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceIOError) Unwrap() error { return e.Err }

// NotObjectError is returned when a JSON value that must be an object is not.
type NotObjectError struct {
	InArray bool
	Index   int
	Got     string
}

func (e *NotObjectError) Error() string {
	if e.InArray {
		return fmt.Sprintf("element %d is a %s, expected an object", e.Index, e.Got)
	}
	return fmt.Sprintf("expected a JSON object, got %s", e.Got)
}
