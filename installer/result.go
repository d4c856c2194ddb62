// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
)

// FailureKind classifies a per-package failure so callers can react
// without parsing messages.
type FailureKind string

const (
	// FailureNotFound means no registry offered a satisfying version.
	FailureNotFound FailureKind = "not-found"
	// FailureChecksum means fetched bytes did not match the recorded checksum.
	FailureChecksum FailureKind = "checksum-mismatch"
	// FailureSignature means the trust policy rejected the archive signature.
	FailureSignature FailureKind = "signature-rejected"
	// FailureRegistry means every registry serving the package was unreachable.
	FailureRegistry FailureKind = "registry-unreachable"
	// FailureInstall covers extraction and filesystem failures.
	FailureInstall FailureKind = "install-failed"
)

// Failure records one requested package that could not be installed
// while the rest of the batch proceeded.
type Failure struct {
	// Package is the requested package the failure is attributed to.
	Package manifest.PackageName
	// Kind classifies the failure.
	Kind FailureKind
	// Message is the underlying error text.
	Message string
}

// InstalledPackage is one package materialized on disk, carrying what
// platform-specific deployers need to pick it up.
type InstalledPackage struct {
	// Name is the package name.
	Name manifest.PackageName
	// Version is the installed version.
	Version *semver.Version
	// Path is the package's extracted root directory.
	Path string
	// Artifacts lists the package's artifact declarations, read from
	// the manifest bundled in the archive. Nil when the archive carries
	// no manifest.
	Artifacts []manifest.Artifact
}

// Result is the outcome of one install run.
type Result struct {
	// Installed lists packages materialized by this run, including
	// dependencies, sorted by name.
	Installed []InstalledPackage
	// AlreadyInstalled lists requested packages skipped because their
	// exact version was already locked and on disk, as name@version.
	AlreadyInstalled []string
	// Failed lists requested packages that could not be installed.
	Failed []Failure
	// Planned lists the name@version plan of a dry run, sorted.
	Planned []string
	// State is the furthest phase the run reached. While packages are
	// being materialized in parallel it tracks the package that has
	// progressed furthest; a finished run reports StateDone or
	// StateFailed.
	State State

	mu sync.Mutex
}

// advance moves State forward to s. Concurrent package pipelines report
// progress through it; a stale report never moves the state backwards.
func (r *Result) advance(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s > r.State {
		r.State = s
	}
}
