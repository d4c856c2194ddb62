// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"strings"

	"github.com/spazyCZ/agent-package-manager-sub001/constraint"
	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
)

// Requirement records that one requirer needs a package under a
// constraint. RequestedBy is "name@version" for resolved requirers and
// RootRequirer for the root manifest itself.
type Requirement struct {
	RequestedBy string
	Constraint  constraint.Constraint
}

// RootRequirer is the RequestedBy label used for direct dependencies of
// the root manifest.
const RootRequirer = "root"

// NotFoundError reports that no registry version satisfies a constraint.
// It aborts the resolution that raised it.
type NotFoundError struct {
	// Name is the package that could not be satisfied.
	Name manifest.PackageName
	// Constraint is the unsatisfiable constraint.
	Constraint constraint.Constraint
	// RequestedBy names the immediate requirer.
	RequestedBy string
	// Root is the root-manifest dependency this requirement descends
	// from, letting batch callers attribute the failure to one requested
	// package.
	Root manifest.PackageName
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no version of %s satisfies %s (required by %s)", e.Name, e.Constraint, e.RequestedBy)
}

// ConflictError reports that requirers need mutually-unsatisfiable
// versions of the same package. It lists every known requirer of the
// name, not just the conflicting pair, and is never auto-resolved.
type ConflictError struct {
	// Name is the contested package.
	Name manifest.PackageName
	// Requirements lists all known requirers and their constraints,
	// deduplicated by requirer.
	Requirements []Requirement
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "conflicting requirements for %s:", e.Name)
	for _, req := range e.Requirements {
		fmt.Fprintf(&b, "\n  %s requires %s", req.RequestedBy, req.Constraint)
	}
	return b.String()
}
