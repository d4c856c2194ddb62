// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package local implements a filesystem-backed package registry. The
// registry root holds an index.yaml naming the published packages and
// their distribution tags, and a packages/ tree with one directory per
// package containing metadata.yaml and the version archives.
//
// The layout is designed for registries shared over ordinary file
// sync: all mutations go through Publish, reads never hold locks, and
// a missing root is reported as a not-configured registry rather than
// an empty one so misconfiguration is not silently treated as absence.
package local
