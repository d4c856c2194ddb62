// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package manifest

import "fmt"

// InvalidError reports a malformed manifest. It is produced by the parsing
// and validation boundary before any resolution logic runs.
type InvalidError struct {
	// Path is the file the manifest was read from, or "" when parsed from
	// memory.
	Path string
	// Detail describes what is wrong with the document.
	Detail string
}

// Error implements the error interface.
func (e *InvalidError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid manifest: %s", e.Detail)
	}
	return fmt.Sprintf("invalid manifest %s: %s", e.Path, e.Detail)
}

// invalidf builds an InvalidError with a formatted detail message.
func invalidf(path, format string, args ...any) *InvalidError {
	return &InvalidError{Path: path, Detail: fmt.Sprintf(format, args...)}
}
