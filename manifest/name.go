// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"regexp"
	"strings"
)

// maxNameLength is the maximum total length of a package name, including
// the scope prefix when present.
const maxNameLength = 130

// segmentRegex validates one name segment: lowercase alphanumeric start,
// then lowercase alphanumeric or dash, at most 64 characters total.
var segmentRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// PackageName is a validated package identifier, either "name" or
// "@scope/name". Equality is exact string match; names are case-sensitive
// and always lowercase.
type PackageName string

// ParsePackageName validates s and returns it as a PackageName.
func ParsePackageName(s string) (PackageName, error) {
	n := PackageName(s)
	if err := n.Validate(); err != nil {
		return "", err
	}
	return n, nil
}

// Validate checks the package name grammar.
func (n PackageName) Validate() error {
	s := string(n)
	if s == "" {
		return fmt.Errorf("package name cannot be empty")
	}
	if len(s) > maxNameLength {
		return fmt.Errorf("package name %q exceeds %d characters", s, maxNameLength)
	}

	if strings.HasPrefix(s, "@") {
		scope, name, ok := strings.Cut(s[1:], "/")
		if !ok {
			return fmt.Errorf("scoped package name %q must have the form @scope/name", s)
		}
		if !segmentRegex.MatchString(scope) {
			return fmt.Errorf("invalid scope in package name %q: must match %s", s, segmentRegex)
		}
		if !segmentRegex.MatchString(name) {
			return fmt.Errorf("invalid name in package name %q: must match %s", s, segmentRegex)
		}
		return nil
	}

	if strings.Contains(s, "/") {
		return fmt.Errorf("package name %q contains a slash but no @scope prefix", s)
	}
	if !segmentRegex.MatchString(s) {
		return fmt.Errorf("invalid package name %q: must match %s", s, segmentRegex)
	}
	return nil
}

// Scoped reports whether the name carries an @scope/ prefix.
func (n PackageName) Scoped() bool {
	return strings.HasPrefix(string(n), "@")
}

// Scope returns the scope segment without the @ prefix, or "" for
// unscoped names.
func (n PackageName) Scope() string {
	if !n.Scoped() {
		return ""
	}
	scope, _, _ := strings.Cut(string(n)[1:], "/")
	return scope
}

// Bare returns the name segment without any scope prefix.
func (n PackageName) Bare() string {
	if !n.Scoped() {
		return string(n)
	}
	_, name, _ := strings.Cut(string(n)[1:], "/")
	return name
}

// String implements fmt.Stringer.
func (n PackageName) String() string {
	return string(n)
}
