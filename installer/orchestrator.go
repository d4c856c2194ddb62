// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spazyCZ/agent-package-manager-sub001/archive"
	"github.com/spazyCZ/agent-package-manager-sub001/constraint"
	"github.com/spazyCZ/agent-package-manager-sub001/exitcode"
	"github.com/spazyCZ/agent-package-manager-sub001/lockfile"
	"github.com/spazyCZ/agent-package-manager-sub001/logger"
	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
	"github.com/spazyCZ/agent-package-manager-sub001/registry"
	"github.com/spazyCZ/agent-package-manager-sub001/resolver"
	"github.com/spazyCZ/agent-package-manager-sub001/verify"
)

const (
	minConcurrency     = 1
	maxConcurrency     = 8
	defaultConcurrency = 4
)

// Options tune one install run.
type Options struct {
	// Force reinstalls packages even when the requested version is
	// already locked and on disk.
	Force bool
	// DryRun stops after resolution and reports the plan without
	// fetching or mutating anything.
	DryRun bool
	// Upgrade ignores the existing lock and re-resolves against the
	// registries.
	Upgrade bool
	// Concurrency bounds parallel archive fetches. Clamped to 1..8;
	// zero selects the default of 4.
	Concurrency int
}

func (o Options) concurrency() int {
	switch {
	case o.Concurrency == 0:
		return defaultConcurrency
	case o.Concurrency < minConcurrency:
		return minConcurrency
	case o.Concurrency > maxConcurrency:
		return maxConcurrency
	}
	return o.Concurrency
}

// Orchestrator drives the install pipeline for one workspace.
type Orchestrator struct {
	ws   WorkspaceContext
	opts Options
}

// New creates an orchestrator over the given workspace.
func New(ws WorkspaceContext, opts Options) *Orchestrator {
	return &Orchestrator{ws: ws, opts: opts}
}

// Install resolves, verifies, and materializes the requested packages
// and their dependency closure, then updates the workspace lock file.
//
// Failures are collected per requested package: a package that cannot
// be found, fetched, or verified lands in Result.Failed while the rest
// of the batch proceeds. A version conflict inside the shared closure
// aborts the whole run, since the combined request has no valid
// solution. When any package failed, Install returns a non-nil error
// alongside the populated Result so callers exit non-zero.
//
// The run is transactional at the package level: archives are extracted
// into a staging directory and moved into place atomically, and the
// lock file is rewritten atomically, so an interrupted run leaves at
// most an orphaned staging directory. A workspace-level advisory lock
// serializes concurrent installs; dry runs read the lock file without
// acquiring it and mutate nothing.
func (o *Orchestrator) Install(ctx context.Context, specs []Spec) (*Result, error) {
	res := &Result{State: StateParsingSpec}

	if err := o.validateRequest(specs); err != nil {
		res.State = StateFailed
		return res, exitcode.WithCode(err, exitcode.Usage)
	}

	// A dry run only reads, so it skips the workspace setup and the
	// advisory lock and leaves the filesystem untouched.
	if !o.opts.DryRun {
		if err := os.MkdirAll(filepath.Dir(o.ws.lockfilePath()), 0o755); err != nil {
			res.State = StateFailed
			return res, exitcode.WithCode(err, exitcode.General)
		}
		mu := lockfile.NewMutex(o.ws.lockfilePath())
		if err := mu.Lock(ctx); err != nil {
			res.State = StateFailed
			return res, exitcode.WithCode(err, exitcode.General)
		}
		defer func() { _ = mu.Unlock() }()
	}

	lock, err := lockfile.Load(o.ws.lockfilePath())
	if err != nil {
		res.State = StateFailed
		return res, exitcode.WithCode(err, exitcode.General)
	}

	res.State = StateCheckingInstalled
	pending := o.filterInstalled(lock, specs, res)
	if len(pending) == 0 {
		return o.finish(res)
	}

	reg := registry.Multi(o.ws.Registries...)

	res.State = StateResolving
	resolved, surviving, err := o.resolve(ctx, lock, pending, reg, res)
	if err != nil {
		res.State = StateFailed
		return res, exitcode.WithCode(err, exitcode.General)
	}

	if err := checkLockConflicts(lock, resolved); err != nil {
		res.State = StateFailed
		return res, exitcode.WithCode(err, exitcode.General)
	}

	if o.opts.DryRun {
		res.Planned = plan(resolved)
		return o.finish(res)
	}

	res.State = StateFetching
	installed, pkgErrs, err := o.materialize(ctx, resolved, reg, res)
	if err != nil {
		res.State = StateFailed
		return res, exitcode.WithCode(err, exitcode.General)
	}
	res.Installed = installed

	lockSet := resolved
	if len(pkgErrs) > 0 {
		lockSet = attributeFailures(resolved, surviving, pkgErrs, res)
		// Packages materialized inside a failed closure stay on disk
		// (they are content-addressed and harmless) but are not part of
		// the deploy handoff.
		kept := res.Installed[:0]
		for _, p := range res.Installed {
			if _, ok := lockSet[p.Name]; ok {
				kept = append(kept, p)
			}
		}
		res.Installed = kept
	}

	if len(lockSet) > 0 {
		res.State = StateUpdatingLock
		if err := o.updateLock(lock, lockSet); err != nil {
			res.State = StateFailed
			return res, exitcode.WithCode(err, exitcode.General)
		}
	}

	return o.finish(res)
}

// finish sets the terminal state and converts collected per-package
// failures into the run's overall error.
func (o *Orchestrator) finish(res *Result) (*Result, error) {
	if len(res.Failed) == 0 {
		res.State = StateDone
		return res, nil
	}
	if len(res.Installed) == 0 && len(res.AlreadyInstalled) == 0 {
		res.State = StateFailed
	} else {
		res.State = StateDone
	}
	return res, exitcode.WithCode(fmt.Errorf("%d requested package(s) failed to install", len(res.Failed)), exitcode.General)
}

// validateRequest rejects malformed batches before any resolution work.
func (o *Orchestrator) validateRequest(specs []Spec) error {
	if err := o.ws.validate(); err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no packages requested")
	}
	seen := make(map[manifest.PackageName]struct{}, len(specs))
	for _, s := range specs {
		if err := s.Name.Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("package %s requested more than once", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// filterInstalled drops exact-version requests that are already locked
// at that version and present on disk. Skipped packages never touch a
// registry.
func (o *Orchestrator) filterInstalled(lock *lockfile.Lock, specs []Spec, res *Result) []Spec {
	if o.opts.Force || lock == nil {
		return specs
	}

	var pending []Spec
	for _, s := range specs {
		if s.Constraint.Kind() != constraint.KindExact {
			pending = append(pending, s)
			continue
		}
		entry, locked := lock.Package(s.Name)
		if !locked || entry.Version != s.Constraint.String() {
			pending = append(pending, s)
			continue
		}
		version, err := constraint.ParseVersion(entry.Version)
		if err != nil || !dirExists(o.ws.packagePath(s.Name, version)) {
			pending = append(pending, s)
			continue
		}
		logger.Debugw("package already installed", "package", s.Name.String(), "version", entry.Version)
		res.AlreadyInstalled = append(res.AlreadyInstalled, s.Name.String()+"@"+entry.Version)
	}
	return pending
}

// resolve produces the pinned closure for the pending specs, replaying
// the lock when possible and falling back to a full resolution
// otherwise. Requests whose subtree cannot be satisfied are recorded in
// res.Failed and the remainder is retried; conflicts abort. The specs
// that survived resolution are returned alongside the closure.
func (o *Orchestrator) resolve(
	ctx context.Context,
	lock *lockfile.Lock,
	specs []Spec,
	reg registry.Registry,
	res *Result,
) (map[manifest.PackageName]*resolver.ResolvedPackage, []Spec, error) {
	if replay, ok := o.replayable(lock, specs); ok {
		resolved, err := lock.ApplyAsResolution(replay)
		if err != nil {
			return nil, nil, fmt.Errorf("replaying lock file: %w", err)
		}
		logger.Debugw("resolved from lock file", "packages", len(resolved))
		return resolved, specs, nil
	}

	remaining := specs
	for len(remaining) > 0 {
		resolved, err := resolver.Resolve(ctx, rootRef(remaining), reg)
		if err == nil {
			return resolved, remaining, nil
		}

		var notFound *resolver.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, err
		}

		idx := -1
		for i, s := range remaining {
			if s.Name == notFound.Root {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, err
		}

		logger.Warnw("package cannot be installed, continuing with the rest of the batch",
			"package", notFound.Root.String(), "error", err.Error())
		res.Failed = append(res.Failed, Failure{
			Package: notFound.Root,
			Kind:    FailureNotFound,
			Message: err.Error(),
		})
		remaining = append(remaining[:idx:idx], remaining[idx+1:]...)
	}

	return map[manifest.PackageName]*resolver.ResolvedPackage{}, nil, nil
}

// replayable reports whether the lock can satisfy every pending spec
// without consulting a registry: a lock exists, no upgrade was
// requested, and each spec matches its locked version.
func (o *Orchestrator) replayable(lock *lockfile.Lock, specs []Spec) ([]manifest.PackageName, bool) {
	if lock == nil || o.opts.Upgrade {
		return nil, false
	}

	names := make([]manifest.PackageName, 0, len(specs))
	for _, s := range specs {
		entry, locked := lock.Package(s.Name)
		if !locked {
			return nil, false
		}
		version, err := constraint.ParseVersion(entry.Version)
		if err != nil || !s.Constraint.Satisfies(version) {
			return nil, false
		}
		names = append(names, s.Name)
	}
	return names, true
}

// rootRef builds the synthetic root manifest for one resolution pass.
func rootRef(specs []Spec) *manifest.Ref {
	deps := make(map[manifest.PackageName]constraint.Constraint, len(specs))
	for _, s := range specs {
		deps[s.Name] = s.Constraint
	}
	return &manifest.Ref{Dependencies: deps}
}

// materialize fetches, verifies, extracts, and atomically installs
// every resolved package, with bounded parallelism. Per-package
// pipeline failures are collected, not fatal; only infrastructure
// failures and context cancellation abort. Packages already on disk at
// their resolved version are reported without refetching.
func (o *Orchestrator) materialize(
	ctx context.Context,
	resolved map[manifest.PackageName]*resolver.ResolvedPackage,
	reg registry.Registry,
	res *Result,
) ([]InstalledPackage, map[manifest.PackageName]error, error) {
	if len(resolved) == 0 {
		return nil, nil, nil
	}

	if err := os.MkdirAll(o.ws.StagingDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating staging directory: %w", err)
	}

	var (
		mu        sync.Mutex
		installed []InstalledPackage
		pkgErrs   = make(map[manifest.PackageName]error)
	)
	record := func(p InstalledPackage) {
		mu.Lock()
		defer mu.Unlock()
		installed = append(installed, p)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.concurrency())

	for _, rp := range resolved {
		target := o.ws.packagePath(rp.Name, rp.Version)

		if dirExists(target) && !o.opts.Force {
			record(o.installedPackage(rp, target))
			continue
		}

		g.Go(func() error {
			if err := o.installOne(gctx, rp, reg, target, res); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warnw("package failed to install, continuing with the rest of the batch",
					"package", rp.Name.String(), "version", rp.Version.String(), "error", err.Error())
				mu.Lock()
				pkgErrs[rp.Name] = err
				mu.Unlock()
				return nil
			}
			record(o.installedPackage(rp, target))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(installed, func(i, j int) bool { return installed[i].Name < installed[j].Name })
	return installed, pkgErrs, nil
}

// installOne runs the fetch-verify-extract-rename pipeline for a single
// package, reporting phase progress on the shared result. The checksum
// and signature gate sits strictly before extraction: rejected bytes
// never touch the staging directory.
func (o *Orchestrator) installOne(
	ctx context.Context,
	rp *resolver.ResolvedPackage,
	reg registry.Registry,
	target string,
	res *Result,
) error {
	data, err := reg.FetchArchive(ctx, rp.Name, rp.Version)
	if err != nil {
		return fmt.Errorf("fetching %s@%s: %w", rp.Name, rp.Version, err)
	}

	var sig *verify.Signature
	if sp, ok := reg.(registry.SignatureProvider); ok {
		sig, err = sp.FetchSignature(ctx, rp.Name, rp.Version)
		if err != nil {
			return fmt.Errorf("fetching signature of %s@%s: %w", rp.Name, rp.Version, err)
		}
	}

	res.advance(StateVerifying)
	if _, err := verify.Archive(data, rp.Checksum, sig, o.ws.TrustPolicy); err != nil {
		var checksumErr *verify.ChecksumError
		if errors.As(err, &checksumErr) {
			checksumErr.Name = rp.Name.String()
			checksumErr.Version = rp.Version.String()
			return err
		}
		return fmt.Errorf("verifying %s@%s: %w", rp.Name, rp.Version, err)
	}

	res.advance(StateInstalling)
	staging, err := os.MkdirTemp(o.ws.StagingDir(), "install-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	if err := archive.Extract(data, staging); err != nil {
		return fmt.Errorf("extracting %s@%s: %w", rp.Name, rp.Version, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating install directory: %w", err)
	}
	if o.opts.Force {
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("removing previous install of %s: %w", rp.Name, err)
		}
	}
	if err := os.Rename(staging, target); err != nil {
		return fmt.Errorf("installing %s@%s: %w", rp.Name, rp.Version, err)
	}

	logger.Infow("installed package",
		"package", rp.Name.String(), "version", rp.Version.String(),
		"source", rp.SourceRegistry, "path", target)
	return nil
}

// attributeFailures maps per-package pipeline failures back onto the
// requested specs whose closure they sit in, records those specs as
// failed, and returns the dependency-closed subset of the resolution
// belonging to the unaffected specs. Only that subset may be locked:
// locking a closure with missing members would corrupt the lock's
// closed-set invariant.
func attributeFailures(
	resolved map[manifest.PackageName]*resolver.ResolvedPackage,
	specs []Spec,
	pkgErrs map[manifest.PackageName]error,
	res *Result,
) map[manifest.PackageName]*resolver.ResolvedPackage {
	keep := make(map[manifest.PackageName]*resolver.ResolvedPackage)

	for _, s := range specs {
		closure := closureOf(resolved, s.Name)

		var failedMember manifest.PackageName
		for _, member := range closure {
			if _, failed := pkgErrs[member]; failed {
				failedMember = member
				break
			}
		}

		if failedMember != "" {
			err := pkgErrs[failedMember]
			res.Failed = append(res.Failed, Failure{
				Package: s.Name,
				Kind:    failureKind(err),
				Message: err.Error(),
			})
			continue
		}
		for _, member := range closure {
			keep[member] = resolved[member]
		}
	}
	return keep
}

// closureOf walks the pinned dependency edges from one root, returning
// the member names sorted for deterministic failure attribution.
func closureOf(resolved map[manifest.PackageName]*resolver.ResolvedPackage, root manifest.PackageName) []manifest.PackageName {
	seen := make(map[manifest.PackageName]struct{})
	queue := []manifest.PackageName{root}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, done := seen[name]; done {
			continue
		}
		rp, ok := resolved[name]
		if !ok {
			continue
		}
		seen[name] = struct{}{}
		for depName := range rp.Dependencies {
			queue = append(queue, depName)
		}
	}

	out := make([]manifest.PackageName, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// failureKind classifies an install pipeline error.
func failureKind(err error) FailureKind {
	var checksumErr *verify.ChecksumError
	var sigErr *verify.SignatureError
	switch {
	case errors.As(err, &checksumErr):
		return FailureChecksum
	case errors.As(err, &sigErr):
		return FailureSignature
	case errors.Is(err, registry.ErrUnreachable):
		return FailureRegistry
	}
	return FailureInstall
}

// installedPackage builds the deploy handoff record for one package,
// reading artifact declarations from the bundled manifest when present.
func (o *Orchestrator) installedPackage(rp *resolver.ResolvedPackage, path string) InstalledPackage {
	p := InstalledPackage{Name: rp.Name, Version: rp.Version, Path: path}
	if m, err := manifest.ParseFile(filepath.Join(path, manifest.FileName)); err == nil {
		p.Artifacts = m.Artifacts
	}
	return p
}

// checkLockConflicts rejects a resolution that contradicts the pinned
// dependency edges of lock entries outside it. Merging such a closure
// over the preserved entries would repin a shared dependency under a
// requirer that recorded a different exact version, silently changing
// what a later lock replay hands that requirer. The conflict names
// both the locked requirer and a requirer from the new resolution.
func checkLockConflicts(prev *lockfile.Lock, resolved map[manifest.PackageName]*resolver.ResolvedPackage) error {
	if prev == nil {
		return nil
	}

	preserved := make([]string, 0, len(prev.Packages))
	for name := range prev.Packages {
		if _, replaced := resolved[manifest.PackageName(name)]; !replaced {
			preserved = append(preserved, name)
		}
	}
	sort.Strings(preserved)

	for _, name := range preserved {
		entry := prev.Packages[name]

		depNames := make([]string, 0, len(entry.Dependencies))
		for depName := range entry.Dependencies {
			depNames = append(depNames, depName)
		}
		sort.Strings(depNames)

		for _, depName := range depNames {
			rp, ok := resolved[manifest.PackageName(depName)]
			if !ok {
				continue
			}
			pinned := entry.Dependencies[depName]
			if rp.Version.String() == pinned {
				continue
			}
			pinnedVersion, err := constraint.ParseVersion(pinned)
			if err != nil {
				return fmt.Errorf("lock entry %s pins invalid version %q of %s: %w", name, pinned, depName, err)
			}
			return &resolver.ConflictError{
				Name: manifest.PackageName(depName),
				Requirements: []resolver.Requirement{
					{
						RequestedBy: fmt.Sprintf("%s@%s (locked)", name, entry.Version),
						Constraint:  constraint.Exact(pinnedVersion),
					},
					{
						RequestedBy: requirerOf(resolved, manifest.PackageName(depName)),
						Constraint:  constraint.Exact(rp.Version),
					},
				},
			}
		}
	}
	return nil
}

// requirerOf names one resolved package depending on dep, falling back
// to the root label when only the request itself requires it.
func requirerOf(resolved map[manifest.PackageName]*resolver.ResolvedPackage, dep manifest.PackageName) string {
	names := make([]manifest.PackageName, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		rp := resolved[name]
		if _, ok := rp.Dependencies[dep]; ok {
			return fmt.Sprintf("%s@%s", rp.Name, rp.Version)
		}
	}
	return resolver.RootRequirer
}

// updateLock merges the new resolution over the previous lock entries
// and saves atomically. Entries outside the new closure are preserved
// so parallel package trees in one workspace keep their pins; their
// dependency edges were checked against the new closure before
// anything was materialized, so the merge cannot repin them.
func (o *Orchestrator) updateLock(prev *lockfile.Lock, resolved map[manifest.PackageName]*resolver.ResolvedPackage) error {
	next := lockfile.FromResolution(resolved, time.Now())
	if prev != nil {
		for name, entry := range prev.Packages {
			if _, ok := next.Packages[name]; !ok {
				next.Packages[name] = entry
			}
		}
	}
	return lockfile.Save(o.ws.lockfilePath(), next)
}

// plan renders a dry-run plan, sorted.
func plan(resolved map[manifest.PackageName]*resolver.ResolvedPackage) []string {
	out := make([]string, 0, len(resolved))
	for _, rp := range resolved {
		out = append(out, fmt.Sprintf("%s@%s", rp.Name, rp.Version))
	}
	sort.Strings(out)
	return out
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
