// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package registrytest provides an in-memory registry for tests.
package registrytest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/opencontainers/go-digest"

	"github.com/spazyCZ/agent-package-manager-sub001/constraint"
	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
	"github.com/spazyCZ/agent-package-manager-sub001/registry"
	"github.com/spazyCZ/agent-package-manager-sub001/verify"
)

// entry is one published package version.
type entry struct {
	ref       *manifest.Ref
	archive   []byte
	checksum  digest.Digest
	signature *verify.Signature
}

// Registry is an in-memory registry.Registry and registry.SignatureProvider
// implementation for tests. It counts archive fetches so tests can assert
// the zero-network properties of lock replay and already-installed skips.
type Registry struct {
	name string

	mu             sync.Mutex
	packages       map[manifest.PackageName]map[string]*entry
	unreachable    bool
	archiveFetches int
}

// New creates an empty in-memory registry with the given name.
func New(name string) *Registry {
	return &Registry{
		name:     name,
		packages: make(map[manifest.PackageName]map[string]*entry),
	}
}

// Ref builds a manifest.Ref from string inputs, panicking on invalid
// input. Test fixture helper only.
func Ref(name, version string, deps map[string]string) *manifest.Ref {
	pkgName, err := manifest.ParsePackageName(name)
	if err != nil {
		panic(err)
	}
	v, err := constraint.ParseVersion(version)
	if err != nil {
		panic(err)
	}
	parsed := make(map[manifest.PackageName]constraint.Constraint, len(deps))
	for depName, depConstraint := range deps {
		dn, err := manifest.ParsePackageName(depName)
		if err != nil {
			panic(err)
		}
		c, err := constraint.Parse(depConstraint)
		if err != nil {
			panic(err)
		}
		parsed[dn] = c
	}
	return &manifest.Ref{Name: pkgName, Version: v, Dependencies: parsed}
}

// Add publishes a package version with the given archive bytes. The
// recorded checksum is computed from the bytes.
func (r *Registry) Add(ref *manifest.Ref, archive []byte) {
	r.AddSigned(ref, archive, nil)
}

// AddSigned publishes a package version with a detached signature.
func (r *Registry) AddSigned(ref *manifest.Ref, archive []byte, sig *verify.Signature) {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.packages[ref.Name]
	if !ok {
		versions = make(map[string]*entry)
		r.packages[ref.Name] = versions
	}
	versions[ref.Version.String()] = &entry{
		ref:       ref,
		archive:   archive,
		checksum:  digest.FromBytes(archive),
		signature: sig,
	}
}

// SetUnreachable makes every subsequent query fail with an
// UnreachableError.
func (r *Registry) SetUnreachable(unreachable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unreachable = unreachable
}

// ArchiveFetches returns the number of FetchArchive calls observed.
func (r *Registry) ArchiveFetches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.archiveFetches
}

// Checksum returns the recorded checksum of a published version.
func (r *Registry) Checksum(name manifest.PackageName, version string) digest.Digest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.packages[name][version].checksum
}

// Corrupt replaces the stored archive bytes of a published version
// without updating its recorded checksum, simulating tampering between
// checksum computation and download.
func (r *Registry) Corrupt(name manifest.PackageName, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.packages[name][version]
	mutated := append([]byte(nil), e.archive...)
	mutated[0] ^= 0xff
	e.archive = mutated
}

// Name implements registry.Registry.
func (r *Registry) Name() string {
	return r.name
}

// ListVersions implements registry.Registry.
func (r *Registry) ListVersions(_ context.Context, name manifest.PackageName) ([]*semver.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unreachable {
		return nil, registry.Unreachablef(r.name, errors.New("registry offline"))
	}

	versions := r.packages[name]
	keys := make([]string, 0, len(versions))
	for v := range versions {
		keys = append(keys, v)
	}
	sort.Strings(keys)

	out := make([]*semver.Version, 0, len(keys))
	for _, k := range keys {
		out = append(out, versions[k].ref.Version)
	}
	return out, nil
}

func (r *Registry) get(name manifest.PackageName, version *semver.Version) (*entry, error) {
	if r.unreachable {
		return nil, registry.Unreachablef(r.name, errors.New("registry offline"))
	}
	e, ok := r.packages[name][version.String()]
	if !ok {
		return nil, fmt.Errorf("%s@%s not found in registry %q", name, version, r.name)
	}
	return e, nil
}

// FetchManifest implements registry.Registry.
func (r *Registry) FetchManifest(
	_ context.Context,
	name manifest.PackageName,
	version *semver.Version,
) (*manifest.Ref, digest.Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.get(name, version)
	if err != nil {
		return nil, "", err
	}
	return e.ref, e.checksum, nil
}

// FetchArchive implements registry.Registry.
func (r *Registry) FetchArchive(_ context.Context, name manifest.PackageName, version *semver.Version) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.archiveFetches++
	e, err := r.get(name, version)
	if err != nil {
		return nil, err
	}
	return e.archive, nil
}

// FetchSignature implements registry.SignatureProvider.
func (r *Registry) FetchSignature(_ context.Context, name manifest.PackageName, version *semver.Version) (*verify.Signature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.get(name, version)
	if err != nil {
		return nil, err
	}
	return e.signature, nil
}
