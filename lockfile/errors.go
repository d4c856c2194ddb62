// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import "fmt"

// WriteError reports a failed lock file save. Installs that hit it are
// reported as failed even when fetch, verify, and extract succeeded,
// because the on-disk record of what is installed would otherwise be
// wrong.
type WriteError struct {
	// Path is the lock file destination.
	Path string
	// Err is the underlying I/O failure.
	Err error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("writing lock file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying I/O error.
func (e *WriteError) Unwrap() error {
	return e.Err
}
