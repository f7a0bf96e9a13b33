package scan

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError rejects malformed input before a scan record exists.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// UnreachableError means the pre-flight availability check failed.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("website is not reachable: %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("website is not reachable: %s", e.URL)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// InitializationError means the browser or another piece of
// infrastructure could not start. It is retry-eligible.
type InitializationError struct {
	Stage string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("%s initialization failed: %v", e.Stage, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// StoreError wraps a persistence failure. Like InitializationError it
// is infrastructure-fatal and retry-eligible.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// AnalysisError is absorbed into an analyzer's default result and
// never escalates past the analyzer that produced it.
type AnalysisError struct {
	Source string
	Err    error
}

func (e *AnalysisError) Error() string {
	if IsTimeout(e.Err) {
		return fmt.Sprintf("%s analysis timed out: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s analysis failed: %v", e.Source, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a deadline/timeout failure.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

// IsInfrastructure reports whether err should escalate to the task
// runner's retry logic rather than be absorbed by an analyzer.
func IsInfrastructure(err error) bool {
	var initErr *InitializationError
	var storeErr *StoreError
	return errors.As(err, &initErr) || errors.As(err, &storeErr)
}
