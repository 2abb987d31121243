package export

import (
	"errors"
	"fmt"
)

// ConfigurationError means the invocation cannot work as given: a project
// is missing or the projects conflict.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// PreflightError means the preflight policy aborted the run.
type PreflightError struct {
	Reason string
}

func (e *PreflightError) Error() string { return "preflight failed: " + e.Reason }

// ParseError means a DICOM file could not be decoded or re-encoded.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parsing %s: %v", e.File, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// UploadError means a file could not be transferred.
type UploadError struct {
	File string
	Err  error
}

func (e *UploadError) Error() string { return fmt.Sprintf("uploading %s: %v", e.File, e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// FatalAPIError means the platform cannot be used any more and the run is
// aborted.
type FatalAPIError struct {
	Op  string
	Err error
}

func (e *FatalAPIError) Error() string { return fmt.Sprintf("platform error during %s: %v", e.Op, e.Err) }
func (e *FatalAPIError) Unwrap() error { return e.Err }

// IsFatal reports whether err aborts a run.
func IsFatal(err error) bool {
	var fatal *FatalAPIError
	return errors.As(err, &fatal)
}
