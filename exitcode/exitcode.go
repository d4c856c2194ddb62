// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package exitcode provides error types carrying process exit codes for CLI error handling.
package exitcode

import "errors"

// Exit codes understood by callers of the install pipeline.
const (
	// OK indicates success.
	OK = 0
	// General indicates a general failure: resolution conflicts, checksum
	// mismatches, registry failures, and anything else that is not a usage error.
	General = 1
	// Usage indicates the caller supplied invalid input, such as a malformed
	// package specifier or manifest.
	Usage = 2
)

// CodedError wraps an error with a process exit code.
// This allows errors to carry their intended exit code through the call stack,
// enabling centralized exit handling in the CLI layer.
type CodedError struct {
	err  error
	code int
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error for errors.Is() and errors.As() compatibility.
func (e *CodedError) Unwrap() error {
	return e.err
}

// ExitCode returns the exit code associated with this error.
func (e *CodedError) ExitCode() int {
	return e.code
}

// WithCode wraps an error with an exit code.
// The returned error implements Unwrap() for use with errors.Is() and errors.As().
// If err is nil, WithCode returns nil.
func WithCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &CodedError{err: err, code: code}
}

// Code extracts the exit code from an error.
// It unwraps the error chain looking for a CodedError.
// If no CodedError is found, it returns General (1).
func Code(err error) int {
	if err == nil {
		return OK
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.code
	}

	return General
}

// New creates a new error with the given message and exit code.
// This is a convenience function equivalent to WithCode(errors.New(message), code).
func New(message string, code int) error {
	return &CodedError{err: errors.New(message), code: code}
}
