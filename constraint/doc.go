// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package constraint implements version-constraint algebra over semantic
versions.

A Constraint is a pure predicate over a version triple. Six forms are
supported, matching the constraint syntax accepted in manifest dependency
blocks:

	1.2.3            exact
	^1.2.3           caret: compatible within the leftmost non-zero component
	~1.2.3           tilde: patch-level updates only
	>=1.2.3          at least, unbounded above
	*                wildcard
	>=1.0.0,<2.0.0   explicit half-open range

Caret semantics follow the leftmost-non-zero rule, including the strict
^0.0.x case which admits only the anchor version itself. This differs from
github.com/Masterminds/semver's own caret ranges (which widen ^0.0.3 to
[0.0.3, 0.1.0)), so the predicates here are implemented directly over
semver.Version values; the semver package supplies parsing, ordering, and
the IncMajor/IncMinor bound arithmetic.

BestMatch selects the highest satisfying version from a candidate list and
is the sole version-selection rule of the resolver: returning nil is a hard
"nothing satisfies this constraint" outcome, never a skip.
*/
package constraint
