// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/opencontainers/go-digest"

	"github.com/spazyCZ/agent-package-manager-sub001/logger"
	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
	"github.com/spazyCZ/agent-package-manager-sub001/verify"
)

// multi composes registries in search order. The first registry offering
// any version of a name claims that name for manifest, archive, and
// signature fetches. An unreachable registry is skipped with a warning;
// the lookup only fails when every registry failed.
type multi struct {
	registries []Registry
}

// Multi returns a Registry that queries the given registries in order.
// Passing a single registry returns it unchanged.
func Multi(registries ...Registry) Registry {
	if len(registries) == 1 {
		return registries[0]
	}
	return &multi{registries: registries}
}

// Sourcer is implemented by composed registries that can report which
// backing registry serves a package. The resolver uses it to record the
// source registry in resolved packages; plain registries are their own
// source.
type Sourcer interface {
	// Source returns the name of the registry that claims the package.
	Source(ctx context.Context, name manifest.PackageName) (string, error)
}

// Source returns the name of the first registry offering any version of
// the package.
func (m *multi) Source(ctx context.Context, name manifest.PackageName) (string, error) {
	reg, err := m.claim(ctx, name)
	if err != nil {
		return "", err
	}
	return reg.Name(), nil
}

// ResolveSource reports which registry serves a package: the Sourcer
// result for composed registries, the registry's own name otherwise.
func ResolveSource(ctx context.Context, reg Registry, name manifest.PackageName) (string, error) {
	if s, ok := reg.(Sourcer); ok {
		return s.Source(ctx, name)
	}
	return reg.Name(), nil
}

// Name implements Registry.
func (*multi) Name() string {
	return "multi"
}

// ListVersions implements Registry. It returns the versions from the
// first registry that offers the package.
func (m *multi) ListVersions(ctx context.Context, name manifest.PackageName) ([]*semver.Version, error) {
	var failures []error
	for _, reg := range m.registries {
		versions, err := reg.ListVersions(ctx, name)
		if err != nil {
			failures = append(failures, err)
			logger.Warnw("registry query failed, trying next registry",
				"registry", reg.Name(), "package", name.String(), "error", err)
			continue
		}
		if len(versions) > 0 {
			return versions, nil
		}
	}
	if len(failures) == len(m.registries) && len(failures) > 0 {
		return nil, fmt.Errorf("all registries failed for %s: %w", name, errors.Join(failures...))
	}
	return nil, nil
}

// claim returns the first registry offering any version of the package.
func (m *multi) claim(ctx context.Context, name manifest.PackageName) (Registry, error) {
	var failures []error
	for _, reg := range m.registries {
		versions, err := reg.ListVersions(ctx, name)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if len(versions) > 0 {
			return reg, nil
		}
	}
	if len(failures) > 0 {
		return nil, fmt.Errorf("no registry serves %s: %w", name, errors.Join(failures...))
	}
	return nil, fmt.Errorf("no registry serves %s", name)
}

// FetchManifest implements Registry.
func (m *multi) FetchManifest(
	ctx context.Context,
	name manifest.PackageName,
	version *semver.Version,
) (*manifest.Ref, digest.Digest, error) {
	reg, err := m.claim(ctx, name)
	if err != nil {
		return nil, "", err
	}
	return reg.FetchManifest(ctx, name, version)
}

// FetchArchive implements Registry.
func (m *multi) FetchArchive(ctx context.Context, name manifest.PackageName, version *semver.Version) ([]byte, error) {
	reg, err := m.claim(ctx, name)
	if err != nil {
		return nil, err
	}
	return reg.FetchArchive(ctx, name, version)
}

// FetchSignature implements SignatureProvider by delegating to the
// claiming registry when it provides signatures.
func (m *multi) FetchSignature(ctx context.Context, name manifest.PackageName, version *semver.Version) (*verify.Signature, error) {
	reg, err := m.claim(ctx, name)
	if err != nil {
		return nil, err
	}
	if sp, ok := reg.(SignatureProvider); ok {
		return sp.FetchSignature(ctx, name, version)
	}
	return nil, nil
}
