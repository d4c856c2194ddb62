// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/opencontainers/go-digest"

	"github.com/spazyCZ/agent-package-manager-sub001/constraint"
	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
	"github.com/spazyCZ/agent-package-manager-sub001/resolver"
)

// Version is the current lock file schema version.
const Version = 1

// Package is one locked package entry. All fields are serialized string
// forms; ToResolution converts them back into typed values.
type Package struct {
	// Version is the exact pinned version.
	Version string `json:"version" yaml:"version"`
	// Source names the registry the package was resolved from.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// Checksum is the expected archive digest in sha256:<hex> form.
	Checksum string `json:"checksum" yaml:"checksum"`
	// Dependencies maps dependency names to exact versions.
	Dependencies map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Lock is the persisted record of a resolved dependency set: the single
// source of truth for what exact versions are installed in a workspace.
//
// Package map keys serialize in sorted order, so two identical
// resolutions produce byte-identical lock bodies except resolved_at.
type Lock struct {
	LockfileVersion int                `json:"lockfile_version" yaml:"lockfile_version"`
	ResolvedAt      time.Time          `json:"resolved_at" yaml:"resolved_at"`
	Packages        map[string]Package `json:"packages" yaml:"packages"`
}

// FromResolution builds a Lock from resolver output.
func FromResolution(resolved map[manifest.PackageName]*resolver.ResolvedPackage, resolvedAt time.Time) *Lock {
	packages := make(map[string]Package, len(resolved))
	for name, rp := range resolved {
		deps := make(map[string]string, len(rp.Dependencies))
		for depName, depVersion := range rp.Dependencies {
			deps[depName.String()] = depVersion.String()
		}
		packages[name.String()] = Package{
			Version:      rp.Version.String(),
			Source:       rp.SourceRegistry,
			Checksum:     rp.Checksum.String(),
			Dependencies: deps,
		}
	}
	return &Lock{
		LockfileVersion: Version,
		ResolvedAt:      resolvedAt.UTC(),
		Packages:        packages,
	}
}

// Package looks up one locked entry.
func (l *Lock) Package(name manifest.PackageName) (Package, bool) {
	p, ok := l.Packages[name.String()]
	return p, ok
}

// ToResolution converts every locked entry back into a typed
// ResolvedPackage map, the same shape the resolver produces.
func (l *Lock) ToResolution() (map[manifest.PackageName]*resolver.ResolvedPackage, error) {
	out := make(map[manifest.PackageName]*resolver.ResolvedPackage, len(l.Packages))
	for rawName, entry := range l.Packages {
		rp, err := l.toResolved(rawName, entry)
		if err != nil {
			return nil, err
		}
		out[rp.Name] = rp
	}
	if err := checkClosure(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyAsResolution replays the locked closure of the requested names
// without consulting any registry or resolver. Every requested name must
// be locked, and every dependency edge must stay inside the lock.
func (l *Lock) ApplyAsResolution(requested []manifest.PackageName) (map[manifest.PackageName]*resolver.ResolvedPackage, error) {
	out := make(map[manifest.PackageName]*resolver.ResolvedPackage)

	queue := append([]manifest.PackageName(nil), requested...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, done := out[name]; done {
			continue
		}

		entry, ok := l.Packages[name.String()]
		if !ok {
			return nil, fmt.Errorf("package %s is not in the lock file", name)
		}
		rp, err := l.toResolved(name.String(), entry)
		if err != nil {
			return nil, err
		}
		out[name] = rp
		for depName := range rp.Dependencies {
			queue = append(queue, depName)
		}
	}

	if err := checkClosure(out); err != nil {
		return nil, err
	}
	return out, nil
}

// toResolved converts one locked entry into a typed ResolvedPackage.
func (l *Lock) toResolved(rawName string, entry Package) (*resolver.ResolvedPackage, error) {
	name, err := manifest.ParsePackageName(rawName)
	if err != nil {
		return nil, fmt.Errorf("lock file entry %q: %w", rawName, err)
	}
	version, err := constraint.ParseVersion(entry.Version)
	if err != nil {
		return nil, fmt.Errorf("lock file entry %q: %w", rawName, err)
	}
	checksum, err := digest.Parse(entry.Checksum)
	if err != nil {
		return nil, fmt.Errorf("lock file entry %q: invalid checksum: %w", rawName, err)
	}

	deps := make(map[manifest.PackageName]*semver.Version, len(entry.Dependencies))
	for rawDep, rawVersion := range entry.Dependencies {
		depName, err := manifest.ParsePackageName(rawDep)
		if err != nil {
			return nil, fmt.Errorf("lock file entry %q: dependency %q: %w", rawName, rawDep, err)
		}
		depVersion, err := constraint.ParseVersion(rawVersion)
		if err != nil {
			return nil, fmt.Errorf("lock file entry %q: dependency %q: %w", rawName, rawDep, err)
		}
		deps[depName] = depVersion
	}

	return &resolver.ResolvedPackage{
		Name:           name,
		Version:        version,
		SourceRegistry: entry.Source,
		Checksum:       checksum,
		Dependencies:   deps,
	}, nil
}

// checkClosure verifies that every dependency edge points at a package
// present in the same set (lock invariant: the set is dependency-closed).
func checkClosure(resolved map[manifest.PackageName]*resolver.ResolvedPackage) error {
	for name, rp := range resolved {
		for depName := range rp.Dependencies {
			if _, ok := resolved[depName]; !ok {
				return fmt.Errorf("lock file is not dependency-closed: %s depends on %s which is not locked", name, depName)
			}
		}
	}
	return nil
}
