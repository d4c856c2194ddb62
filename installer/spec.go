// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"strings"

	"github.com/spazyCZ/agent-package-manager-sub001/constraint"
	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
)

// Spec is one requested package: a name plus the version constraint it
// must satisfy.
type Spec struct {
	Name       manifest.PackageName
	Constraint constraint.Constraint
}

// ParseSpec parses a request of the form "name" or "name@constraint".
// A bare name requests any version. The separator is the last "@" so
// scoped names ("@scope/tool@^1.0.0") parse correctly.
func ParseSpec(s string) (Spec, error) {
	rawName := s
	rawConstraint := ""
	if idx := strings.LastIndex(s, "@"); idx > 0 {
		rawName, rawConstraint = s[:idx], s[idx+1:]
	}

	name, err := manifest.ParsePackageName(rawName)
	if err != nil {
		return Spec{}, err
	}

	if rawConstraint == "" {
		return Spec{Name: name, Constraint: constraint.Wildcard()}, nil
	}
	c, err := constraint.Parse(rawConstraint)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Name: name, Constraint: c}, nil
}

// String renders the spec back into name@constraint form.
func (s Spec) String() string {
	return s.Name.String() + "@" + s.Constraint.String()
}
