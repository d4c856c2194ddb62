// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/opencontainers/go-digest"

	"github.com/spazyCZ/agent-package-manager-sub001/constraint"
	"github.com/spazyCZ/agent-package-manager-sub001/logger"
	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
	"github.com/spazyCZ/agent-package-manager-sub001/registry"
)

// ResolvedPackage is the exact, pinned output of resolution for one
// package. Immutable once produced.
type ResolvedPackage struct {
	// Name is the package name.
	Name manifest.PackageName
	// Version is the chosen version.
	Version *semver.Version
	// SourceRegistry names the registry that serves the package.
	SourceRegistry string
	// Checksum is the expected sha256 of the package archive. It is not
	// trusted until the verification gate has confirmed it against
	// fetched bytes.
	Checksum digest.Digest
	// Dependencies pins each dependency to the exact version chosen for
	// it in the same resolution.
	Dependencies map[manifest.PackageName]*semver.Version
}

// queueEntry is one pending requirement in the BFS worklist.
type queueEntry struct {
	name        manifest.PackageName
	constraint  constraint.Constraint
	requestedBy string
	// root is the root-manifest dependency this entry descends from,
	// carried for failure attribution in batch installs.
	root manifest.PackageName
}

// state is the working set of one resolution call. It exists only for
// the duration of the call and is never persisted.
type state struct {
	queue    []queueEntry
	resolved map[manifest.PackageName]*ResolvedPackage
	// refs keeps each resolved package's dependency constraints until the
	// final pass pins them to exact versions.
	refs map[manifest.PackageName]*manifest.Ref
	// requirements collects every known requirer per name for conflict
	// reporting, deduplicated by requirer.
	requirements map[manifest.PackageName][]Requirement
}

func (s *state) recordRequirement(name manifest.PackageName, req Requirement) {
	for _, existing := range s.requirements[name] {
		if existing.RequestedBy == req.RequestedBy {
			return
		}
	}
	s.requirements[name] = append(s.requirements[name], req)
}

// Resolve computes a conflict-free, fully-pinned dependency set for the
// root manifest against the given registry.
//
// The traversal is a greedy breadth-first walk with a single resolution
// pass per package name: the first time a name is encountered its highest
// satisfying version is chosen, and every later requirement is only
// verified against that choice. Unsatisfiable requirements surface as
// *NotFoundError or *ConflictError; both abort the whole resolution and
// no partial result is returned.
func Resolve(
	ctx context.Context,
	root *manifest.Ref,
	reg registry.Registry,
) (map[manifest.PackageName]*ResolvedPackage, error) {
	s := &state{
		resolved:     make(map[manifest.PackageName]*ResolvedPackage),
		refs:         make(map[manifest.PackageName]*manifest.Ref),
		requirements: make(map[manifest.PackageName][]Requirement),
	}

	// Seed the worklist with the root's direct dependencies in sorted
	// order so discovery order is deterministic.
	for _, depName := range root.DependencyNames() {
		s.queue = append(s.queue, queueEntry{
			name:        depName,
			constraint:  root.Dependencies[depName],
			requestedBy: rootLabel(root),
			root:        depName,
		})
	}

	for len(s.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := s.queue[0]
		s.queue = s.queue[1:]

		s.recordRequirement(entry.name, Requirement{RequestedBy: entry.requestedBy, Constraint: entry.constraint})

		if chosen, ok := s.resolved[entry.name]; ok {
			// Already resolved: the subtree is expanded, only verify that
			// the chosen version also satisfies this requirement.
			if entry.constraint.Satisfies(chosen.Version) {
				continue
			}
			return nil, &ConflictError{Name: entry.name, Requirements: s.requirements[entry.name]}
		}

		if err := s.resolveOne(ctx, entry, reg); err != nil {
			return nil, err
		}
	}

	return s.pinDependencies()
}

// resolveOne chooses a version for a not-yet-resolved name and enqueues
// its dependencies.
func (s *state) resolveOne(ctx context.Context, entry queueEntry, reg registry.Registry) error {
	versions, err := reg.ListVersions(ctx, entry.name)
	if err != nil {
		return fmt.Errorf("listing versions of %s: %w", entry.name, err)
	}

	best := constraint.BestMatch(entry.constraint, versions)
	if best == nil {
		return &NotFoundError{
			Name:        entry.name,
			Constraint:  entry.constraint,
			RequestedBy: entry.requestedBy,
			Root:        entry.root,
		}
	}

	ref, checksum, err := reg.FetchManifest(ctx, entry.name, best)
	if err != nil {
		return fmt.Errorf("fetching manifest of %s@%s: %w", entry.name, best, err)
	}

	source, err := registry.ResolveSource(ctx, reg, entry.name)
	if err != nil {
		return fmt.Errorf("locating source registry of %s: %w", entry.name, err)
	}

	s.resolved[entry.name] = &ResolvedPackage{
		Name:           entry.name,
		Version:        best,
		SourceRegistry: source,
		Checksum:       checksum,
	}
	s.refs[entry.name] = ref

	logger.Debugw("resolved package",
		"package", entry.name.String(), "version", best.String(),
		"constraint", entry.constraint.String(), "requested_by", entry.requestedBy)

	requestedBy := fmt.Sprintf("%s@%s", entry.name, best)
	for _, depName := range ref.DependencyNames() {
		s.queue = append(s.queue, queueEntry{
			name:        depName,
			constraint:  ref.Dependencies[depName],
			requestedBy: requestedBy,
			root:        entry.root,
		})
	}
	return nil
}

// pinDependencies converts each resolved package's constraint edges into
// exact version edges. Every edge must point at a package resolved in the
// same pass; a dangling edge would violate the closure invariant and is
// reported as an internal error.
func (s *state) pinDependencies() (map[manifest.PackageName]*ResolvedPackage, error) {
	for name, rp := range s.resolved {
		ref := s.refs[name]
		rp.Dependencies = make(map[manifest.PackageName]*semver.Version, len(ref.Dependencies))
		for depName := range ref.Dependencies {
			dep, ok := s.resolved[depName]
			if !ok {
				return nil, fmt.Errorf("internal: %s depends on %s which was never resolved", name, depName)
			}
			rp.Dependencies[depName] = dep.Version
		}
	}
	return s.resolved, nil
}

func rootLabel(root *manifest.Ref) string {
	if root.Name == "" {
		return RootRequirer
	}
	if root.Version == nil {
		return root.Name.String()
	}
	return fmt.Sprintf("%s@%s", root.Name, root.Version)
}
