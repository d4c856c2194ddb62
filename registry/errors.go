// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable indicates a transient failure talking to a registry.
	ErrUnreachable = errors.New("registry unreachable")

	// ErrNotConfigured indicates a registry whose backing store is missing
	// or misconfigured, for example a local registry root that does not exist.
	ErrNotConfigured = errors.New("registry not configured")
)

// UnreachableError wraps ErrUnreachable with the name of the failing
// registry so multi-registry lookups can report failures per registry.
type UnreachableError struct {
	// Registry is the name of the registry that could not be reached.
	Registry string
	// Err is the underlying transport or store failure.
	Err error
}

// Error implements the error interface.
func (e *UnreachableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("registry %q unreachable", e.Registry)
	}
	return fmt.Sprintf("registry %q unreachable: %v", e.Registry, e.Err)
}

// Unwrap makes the error match ErrUnreachable and the wrapped cause.
func (e *UnreachableError) Unwrap() []error {
	return []error{ErrUnreachable, e.Err}
}

// Unreachablef builds an UnreachableError for the named registry.
func Unreachablef(registryName string, err error) error {
	return &UnreachableError{Registry: registryName, Err: err}
}
