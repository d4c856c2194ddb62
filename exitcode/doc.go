// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package exitcode provides error types with process exit codes for CLI error handling.

The install pipeline returns structured errors; the CLI layer maps them to
process exit codes. This package allows errors to carry their intended exit
code through the call stack so the mapping happens in exactly one place. The
CodedError type implements the standard error interface and supports error
wrapping via errors.Is() and errors.As().

# Basic Usage

Create errors with exit codes:

	// Create a new error with an exit code
	err := exitcode.New("invalid package specifier", exitcode.Usage)

	// Wrap an existing error with an exit code
	err := exitcode.WithCode(err, exitcode.General)

# Extracting Exit Codes

Extract the exit code from an error chain:

	code := exitcode.Code(err)
	// Returns the code if err contains a CodedError
	// Returns General (1) if no CodedError is found
	// Returns OK (0) if err is nil

# Error Wrapping

CodedError supports the standard Go error wrapping pattern:

	sentinel := errors.New("lock file write failed")
	err := exitcode.WithCode(sentinel, exitcode.General)

	// errors.Is works through the wrapper
	if errors.Is(err, sentinel) {
		// handle specific error
	}

	// errors.As can extract the CodedError
	var coded *exitcode.CodedError
	if errors.As(err, &coded) {
		os.Exit(coded.ExitCode())
	}
*/
package exitcode
