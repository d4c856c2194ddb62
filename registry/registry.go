// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks Registry

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/opencontainers/go-digest"

	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
	"github.com/spazyCZ/agent-package-manager-sub001/verify"
)

// Registry is the query contract every package registry implements.
// The install pipeline only ever consumes this interface; concrete
// backends (local filesystem, git, HTTP) live behind it.
//
// A package that is simply not present in a registry is reported as an
// empty version list, not an error, so ordered multi-registry fallback
// composes naturally.
type Registry interface {
	// Name identifies the registry in lock files and error messages.
	Name() string

	// ListVersions returns all available versions of a package, in no
	// particular order. An unknown package yields an empty slice.
	ListVersions(ctx context.Context, name manifest.PackageName) ([]*semver.Version, error)

	// FetchManifest returns the resolution-relevant manifest of one
	// package version together with the expected archive checksum.
	FetchManifest(ctx context.Context, name manifest.PackageName, version *semver.Version) (*manifest.Ref, digest.Digest, error)

	// FetchArchive returns the raw archive bytes of one package version.
	FetchArchive(ctx context.Context, name manifest.PackageName, version *semver.Version) ([]byte, error)
}

// SignatureProvider is an optional extension for registries that serve
// detached signatures alongside archives. Registries that do not
// implement it serve unsigned archives; the verifier applies the trust
// policy's absent-signature rule in that case.
type SignatureProvider interface {
	// FetchSignature returns the detached signature for one package
	// version, or nil when the version is unsigned.
	FetchSignature(ctx context.Context, name manifest.PackageName, version *semver.Version) (*verify.Signature, error)
}
