// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package constraint

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Kind identifies the form of a version constraint.
type Kind int

const (
	// KindExact matches a single version exactly.
	KindExact Kind = iota
	// KindCaret matches versions compatible with the anchor (semver caret rules).
	KindCaret
	// KindTilde matches patch-level updates of the anchor.
	KindTilde
	// KindAtLeast matches any version greater than or equal to the anchor.
	KindAtLeast
	// KindWildcard matches any version.
	KindWildcard
	// KindRange matches a half-open interval [lower, upper).
	KindRange
)

// Constraint is an immutable predicate over semantic versions.
// The zero value is not valid; construct constraints with Parse or the
// typed constructors.
type Constraint struct {
	kind  Kind
	lower *semver.Version
	upper *semver.Version // KindRange only, exclusive
}

// Kind returns the form of the constraint.
func (c Constraint) Kind() Kind {
	return c.kind
}

// Exact returns a constraint satisfied only by v.
func Exact(v *semver.Version) Constraint {
	return Constraint{kind: KindExact, lower: v}
}

// Caret returns a caret constraint anchored at v.
func Caret(v *semver.Version) Constraint {
	return Constraint{kind: KindCaret, lower: v}
}

// Tilde returns a tilde constraint anchored at v.
func Tilde(v *semver.Version) Constraint {
	return Constraint{kind: KindTilde, lower: v}
}

// AtLeast returns a constraint satisfied by any version >= v.
func AtLeast(v *semver.Version) Constraint {
	return Constraint{kind: KindAtLeast, lower: v}
}

// Wildcard returns a constraint satisfied by every version.
func Wildcard() Constraint {
	return Constraint{kind: KindWildcard}
}

// Range returns a constraint satisfied by versions in [lower, upper).
func Range(lower, upper *semver.Version) Constraint {
	return Constraint{kind: KindRange, lower: lower, upper: upper}
}

// ParseVersion parses a bare semantic version triple.
// Pre-release and build metadata are rejected: the data model pins exact
// (major, minor, patch) triples and nothing else.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return nil, fmt.Errorf("invalid version %q: pre-release and build metadata are not supported", s)
	}
	return v, nil
}

// Parse parses a constraint string into a Constraint.
//
// Supported syntaxes: "1.2.3" (exact), "^1.2.3" (caret), "~1.2.3" (tilde),
// ">=1.2.3" (at least), "*" (wildcard), and ">=1.0.0,<2.0.0" (explicit range).
func Parse(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Constraint{}, fmt.Errorf("empty constraint")
	case s == "*":
		return Wildcard(), nil
	case strings.Contains(s, ","):
		return parseRange(s)
	case strings.HasPrefix(s, "^"):
		v, err := ParseVersion(s[1:])
		if err != nil {
			return Constraint{}, fmt.Errorf("invalid caret constraint %q: %w", s, err)
		}
		return Caret(v), nil
	case strings.HasPrefix(s, "~"):
		v, err := ParseVersion(s[1:])
		if err != nil {
			return Constraint{}, fmt.Errorf("invalid tilde constraint %q: %w", s, err)
		}
		return Tilde(v), nil
	case strings.HasPrefix(s, ">="):
		v, err := ParseVersion(strings.TrimSpace(s[2:]))
		if err != nil {
			return Constraint{}, fmt.Errorf("invalid constraint %q: %w", s, err)
		}
		return AtLeast(v), nil
	default:
		v, err := ParseVersion(s)
		if err != nil {
			return Constraint{}, fmt.Errorf("invalid constraint %q: %w", s, err)
		}
		return Exact(v), nil
	}
}

// parseRange parses an explicit ">=lower,<upper" range constraint.
func parseRange(s string) (Constraint, error) {
	parts := strings.SplitN(s, ",", 2)
	lo := strings.TrimSpace(parts[0])
	hi := strings.TrimSpace(parts[1])
	if !strings.HasPrefix(lo, ">=") {
		return Constraint{}, fmt.Errorf("invalid range %q: lower bound must use >=", s)
	}
	if !strings.HasPrefix(hi, "<") || strings.HasPrefix(hi, "<=") {
		return Constraint{}, fmt.Errorf("invalid range %q: upper bound must use < (exclusive)", s)
	}
	lower, err := ParseVersion(strings.TrimSpace(lo[2:]))
	if err != nil {
		return Constraint{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	upper, err := ParseVersion(strings.TrimSpace(hi[1:]))
	if err != nil {
		return Constraint{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if !lower.LessThan(upper) {
		return Constraint{}, fmt.Errorf("invalid range %q: lower bound is not below upper bound", s)
	}
	return Range(lower, upper), nil
}

// Satisfies reports whether v satisfies the constraint.
func (c Constraint) Satisfies(v *semver.Version) bool {
	switch c.kind {
	case KindExact:
		return v.Equal(c.lower)
	case KindCaret:
		return c.satisfiesCaret(v)
	case KindTilde:
		upper := c.lower.IncMinor()
		return !v.LessThan(c.lower) && v.LessThan(&upper)
	case KindAtLeast:
		return !v.LessThan(c.lower)
	case KindWildcard:
		return true
	case KindRange:
		return !v.LessThan(c.lower) && v.LessThan(c.upper)
	default:
		return false
	}
}

// satisfiesCaret implements caret semantics.
// ^1.2.3 admits [1.2.3, 2.0.0); ^0.2.3 admits [0.2.3, 0.3.0); ^0.0.3 admits
// only 0.0.3 itself.
func (c Constraint) satisfiesCaret(v *semver.Version) bool {
	anchor := c.lower
	switch {
	case anchor.Major() > 0:
		upper := anchor.IncMajor()
		return !v.LessThan(anchor) && v.LessThan(&upper)
	case anchor.Minor() > 0:
		upper := anchor.IncMinor()
		return !v.LessThan(anchor) && v.LessThan(&upper)
	default:
		return v.Equal(anchor)
	}
}

// BestMatch returns the highest candidate satisfying c, or nil when no
// candidate matches. Callers treat nil as a hard resolution failure, never
// as a silent skip.
func BestMatch(c Constraint, candidates []*semver.Version) *semver.Version {
	var best *semver.Version
	for _, v := range candidates {
		if v == nil || !c.Satisfies(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	return best
}

// String renders the constraint in the same syntax accepted by Parse.
func (c Constraint) String() string {
	switch c.kind {
	case KindExact:
		return c.lower.String()
	case KindCaret:
		return "^" + c.lower.String()
	case KindTilde:
		return "~" + c.lower.String()
	case KindAtLeast:
		return ">=" + c.lower.String()
	case KindWildcard:
		return "*"
	case KindRange:
		return ">=" + c.lower.String() + ",<" + c.upper.String()
	default:
		return "<invalid>"
	}
}
