package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a per-file validation error.
type ErrorKind string

const (
	ErrorKindUnsupportedFormat        ErrorKind = "unsupported_format"
	ErrorKindProvenanceRejected       ErrorKind = "provenance_rejected"
	ErrorKindTimeWindowRejected       ErrorKind = "time_window_rejected"
	ErrorKindCreationTimeUnverifiable ErrorKind = "creation_time_unverifiable"
	ErrorKindExtractionFailure        ErrorKind = "extraction_failure"
	ErrorKindCancelled                ErrorKind = "cancelled"
	ErrorKindStoreFailure             ErrorKind = "store_failure"
)

var (
	ErrUnsupportedFormat        = errors.New("unsupported format")
	ErrProvenanceRejected       = errors.New("provenance rejected")
	ErrTimeWindowRejected       = errors.New("outside event time window")
	ErrCreationTimeUnverifiable = errors.New("creation time unverifiable")
	ErrExtractionFailure        = errors.New("metadata extraction failed")
	ErrCompressionFailure       = errors.New("image compression failed")
	ErrNoFilesAccepted          = errors.New("no files were successfully validated")
	ErrNoFiles                  = errors.New("missing required parameter - file")
	ErrValidationCancelled      = errors.New("validation cancelled")
	ErrStoreFailure             = errors.New("failed to store file")
)

// Sentinel returns the sentinel error matching an error kind, or nil.
func (k ErrorKind) Sentinel() error {
	switch k {
	case ErrorKindUnsupportedFormat:
		return ErrUnsupportedFormat
	case ErrorKindProvenanceRejected:
		return ErrProvenanceRejected
	case ErrorKindTimeWindowRejected:
		return ErrTimeWindowRejected
	case ErrorKindCreationTimeUnverifiable:
		return ErrCreationTimeUnverifiable
	case ErrorKindExtractionFailure:
		return ErrExtractionFailure
	case ErrorKindCancelled:
		return ErrValidationCancelled
	case ErrorKindStoreFailure:
		return ErrStoreFailure
	}
	return nil
}

// MissingInputError reports a RawFile that violates the input contract.
type MissingInputError struct {
	Index int
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("invalid file object at index %d - missing required property %q", e.Index, e.Field)
}

// BatchRejectedError is returned when no file in a batch was accepted.
type BatchRejectedError struct {
	// Reason is the first error of the first rejected file.
	Reason   string
	Rejected []RejectedFile
}

func (e *BatchRejectedError) Error() string {
	if e.Reason == "" {
		return ErrNoFilesAccepted.Error()
	}
	return ErrNoFilesAccepted.Error() + ": " + e.Reason
}

func (e *BatchRejectedError) Unwrap() error {
	return ErrNoFilesAccepted
}
