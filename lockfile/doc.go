// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package lockfile persists the exact-version record that makes installs
reproducible.

The lock file is a YAML document validated against an embedded JSON
schema on load: a schema version, a resolution timestamp, and one entry
per package pinning its exact version, source registry, archive checksum,
and exact dependency versions. It is the single source of truth for what
is installed in a workspace.

Three guarantees matter here:

  - Saves are atomic. The document is written to a temp file in the
    destination directory, synced, and renamed over the old lock file; a
    crash mid-install never leaves a half-written lock.
  - Serialization is deterministic. Map keys marshal sorted, so the same
    resolution always produces the same bytes except resolved_at.
  - Replays never touch the network. ApplyAsResolution reconstructs the
    locked closure of the requested names purely from the lock, producing
    the same ResolvedPackage set the resolver originally emitted.

Mutex provides the advisory file lock the orchestrator holds around the
resolve-to-lock-update span, keeping concurrent installs in the same
workspace from interleaving.
*/
package lockfile
