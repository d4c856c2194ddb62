// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package resolver turns a root manifest into a fully-pinned, conflict-free
dependency set.

The algorithm is a greedy breadth-first traversal over an explicit FIFO
worklist. Each package name is resolved exactly once: the first
requirement for a name selects the highest registry version satisfying
its constraint, and every requirement encountered afterwards is only
checked against that chosen version. A requirement the chosen version
cannot satisfy is a ConflictError naming every known requirer of the
package; a constraint no registry version satisfies is a NotFoundError.
Conflicts are reported, never auto-resolved, and either error aborts the
entire resolution; partial results are never returned.

This resolve-once rule is what enforces the single-version invariant:
a resolved set contains at most one version per package name, like Go
modules and unlike npm. Given a fixed registry state the outcome is
independent of discovery order, because the selection rule is always
"highest satisfying version"; the worklist additionally enqueues
dependencies in sorted name order so traversal itself is deterministic.

Breadth-first ordering means every sibling across the whole graph is
discovered before any grandchild, which gives conflict errors that name
requirers from the widest possible frontier of the graph.
*/
package resolver
