// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package installer orchestrates the install pipeline: request
// validation, resolution (from the lock file when it already satisfies
// the request, otherwise against the configured registries), verified
// archive download, staged extraction with an atomic move into the
// workspace, and the final lock file update.
//
// Install runs in one workspace are serialized by an advisory file
// lock, and every on-disk mutation is atomic, so a crashed or
// interrupted run never leaves a half-written package directory or
// lock file.
package installer
