// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spazyCZ/agent-package-manager-sub001/archive"
	"github.com/spazyCZ/agent-package-manager-sub001/exitcode"
	"github.com/spazyCZ/agent-package-manager-sub001/installer"
	"github.com/spazyCZ/agent-package-manager-sub001/lockfile"
	"github.com/spazyCZ/agent-package-manager-sub001/registry"
	"github.com/spazyCZ/agent-package-manager-sub001/registry/registrytest"
	"github.com/spazyCZ/agent-package-manager-sub001/resolver"
	"github.com/spazyCZ/agent-package-manager-sub001/verify"
)

// publish adds a package version whose archive bundles a manifest and
// one artifact file, so installs exercise the deploy handoff too.
func publish(t *testing.T, reg *registrytest.Registry, name, version string, deps map[string]string) {
	t.Helper()

	doc := fmt.Sprintf("name: %q\nversion: %q\n", name, version)
	if len(deps) > 0 {
		doc += "dependencies:\n"
		for depName, depConstraint := range deps {
			doc += fmt.Sprintf("  %q: %q\n", depName, depConstraint)
		}
	}
	doc += "artifacts:\n  - name: main\n    type: skill\n    path: SKILL.md\n"

	data, err := archive.Pack([]archive.Entry{
		{Path: "aam.yaml", Content: []byte(doc)},
		{Path: "SKILL.md", Content: []byte("# " + name + " " + version + "\n")},
	}, time.Time{})
	require.NoError(t, err)

	reg.Add(registrytest.Ref(name, version, deps), data)
}

func workspace(t *testing.T, regs ...registry.Registry) installer.WorkspaceContext {
	t.Helper()
	return installer.WorkspaceContext{Root: t.TempDir(), Registries: regs}
}

func mustSpec(t *testing.T, s string) installer.Spec {
	t.Helper()
	spec, err := installer.ParseSpec(s)
	require.NoError(t, err)
	return spec
}

func TestParseSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in             string
		wantName       string
		wantConstraint string
		wantErr        bool
	}{
		{in: "tool", wantName: "tool", wantConstraint: "*"},
		{in: "tool@1.2.3", wantName: "tool", wantConstraint: "1.2.3"},
		{in: "tool@^1.0.0", wantName: "tool", wantConstraint: "^1.0.0"},
		{in: "@acme/tool", wantName: "@acme/tool", wantConstraint: "*"},
		{in: "@acme/tool@~2.1.0", wantName: "@acme/tool", wantConstraint: "~2.1.0"},
		{in: "Not-Valid", wantErr: true},
		{in: "tool@not-a-version", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			spec, err := installer.ParseSpec(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, spec.Name.String())
			assert.Equal(t, tt.wantConstraint, spec.Constraint.String())
		})
	}
}

func TestInstallSinglePackage(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "code-review-skill", "1.2.0", nil)
	ws := workspace(t, reg)

	res, err := installer.New(ws, installer.Options{}).Install(
		context.Background(), []installer.Spec{mustSpec(t, "code-review-skill@1.2.0")})
	require.NoError(t, err)

	assert.Equal(t, installer.StateDone, res.State)
	require.Len(t, res.Installed, 1)
	got := res.Installed[0]
	assert.Equal(t, "code-review-skill", got.Name.String())
	assert.Equal(t, "1.2.0", got.Version.String())

	content, err := os.ReadFile(filepath.Join(got.Path, "SKILL.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "code-review-skill")

	require.Len(t, got.Artifacts, 1)
	assert.Equal(t, "skill", got.Artifacts[0].Type)

	lock, err := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, err)
	require.NotNil(t, lock)
	entry, ok := lock.Package("code-review-skill")
	require.True(t, ok)
	assert.Equal(t, "1.2.0", entry.Version)
	assert.Equal(t, "team", entry.Source)
}

func TestInstallTransitiveClosure(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "linter-rules", "1.4.0", nil)
	publish(t, reg, "code-review-skill", "2.0.0", map[string]string{"linter-rules": "^1.0.0"})
	ws := workspace(t, reg)

	res, err := installer.New(ws, installer.Options{}).Install(
		context.Background(), []installer.Spec{mustSpec(t, "code-review-skill@^2.0.0")})
	require.NoError(t, err)

	require.Len(t, res.Installed, 2)
	// Installed is sorted by name.
	assert.Equal(t, "code-review-skill", res.Installed[0].Name.String())
	assert.Equal(t, "linter-rules", res.Installed[1].Name.String())

	lock, err := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, err)
	entry, ok := lock.Package("code-review-skill")
	require.True(t, ok)
	assert.Equal(t, "1.4.0", entry.Dependencies["linter-rules"])
}

func TestAlreadyInstalledSkipsRegistry(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "tool", "1.0.0", nil)
	ws := workspace(t, reg)
	specs := []installer.Spec{mustSpec(t, "tool@1.0.0")}

	_, err := installer.New(ws, installer.Options{}).Install(context.Background(), specs)
	require.NoError(t, err)
	fetchesAfterFirst := reg.ArchiveFetches()

	res, err := installer.New(ws, installer.Options{}).Install(context.Background(), specs)
	require.NoError(t, err)

	assert.Equal(t, installer.StateDone, res.State)
	assert.Empty(t, res.Installed)
	assert.Equal(t, []string{"tool@1.0.0"}, res.AlreadyInstalled)
	assert.Equal(t, fetchesAfterFirst, reg.ArchiveFetches(), "second install must not fetch")
}

func TestForceReinstalls(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "tool", "1.0.0", nil)
	ws := workspace(t, reg)
	specs := []installer.Spec{mustSpec(t, "tool@1.0.0")}

	_, err := installer.New(ws, installer.Options{}).Install(context.Background(), specs)
	require.NoError(t, err)
	fetchesAfterFirst := reg.ArchiveFetches()

	res, err := installer.New(ws, installer.Options{Force: true}).Install(context.Background(), specs)
	require.NoError(t, err)

	require.Len(t, res.Installed, 1)
	assert.Greater(t, reg.ArchiveFetches(), fetchesAfterFirst)
}

func TestBatchPartialFailure(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "present-tool", "1.0.0", nil)
	ws := workspace(t, reg)

	res, err := installer.New(ws, installer.Options{}).Install(context.Background(), []installer.Spec{
		mustSpec(t, "present-tool@^1.0.0"),
		mustSpec(t, "absent-tool@^1.0.0"),
	})

	// The batch reports overall failure, but the resolvable package is
	// genuinely installed.
	require.Error(t, err)
	assert.Equal(t, exitcode.General, exitcode.Code(err))
	assert.Equal(t, installer.StateDone, res.State)

	require.Len(t, res.Installed, 1)
	assert.Equal(t, "present-tool", res.Installed[0].Name.String())
	assert.DirExists(t, res.Installed[0].Path)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "absent-tool", res.Failed[0].Package.String())
	assert.Equal(t, installer.FailureNotFound, res.Failed[0].Kind)
}

func TestConflictAbortsBatch(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "shared-lib", "1.0.0", nil)
	publish(t, reg, "shared-lib", "2.0.0", nil)
	publish(t, reg, "tool-a", "1.0.0", map[string]string{"shared-lib": "^1.0.0"})
	publish(t, reg, "tool-b", "1.0.0", map[string]string{"shared-lib": "2.0.0"})
	ws := workspace(t, reg)

	res, err := installer.New(ws, installer.Options{}).Install(context.Background(), []installer.Spec{
		mustSpec(t, "tool-a@1.0.0"),
		mustSpec(t, "tool-b@1.0.0"),
	})
	require.Error(t, err)

	var conflict *resolver.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, installer.StateFailed, res.State)

	// Nothing was materialized and no lock was written.
	_, statErr := os.Stat(filepath.Join(ws.Root, "packages"))
	assert.True(t, os.IsNotExist(statErr))
	lock, loadErr := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, loadErr)
	assert.Nil(t, lock)
}

func TestSequentialInstallConflictsWithLockedPin(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "shared-lib", "1.0.0", nil)
	publish(t, reg, "shared-lib", "2.0.0", nil)
	publish(t, reg, "tool-a", "1.0.0", map[string]string{"shared-lib": "^1.0.0"})
	publish(t, reg, "tool-b", "1.0.0", map[string]string{"shared-lib": "^1.0.0"})
	publish(t, reg, "tool-c", "1.0.0", map[string]string{"shared-lib": "^2.0.0"})
	ws := workspace(t, reg)
	orch := installer.New(ws, installer.Options{})

	_, err := orch.Install(context.Background(), []installer.Spec{mustSpec(t, "tool-a@1.0.0")})
	require.NoError(t, err)

	// A later install that agrees with the locked shared-lib pin merges
	// cleanly over the preserved entries.
	_, err = orch.Install(context.Background(), []installer.Spec{mustSpec(t, "tool-b@1.0.0")})
	require.NoError(t, err)

	// A later install whose closure would repin shared-lib under
	// tool-a's recorded dependency edge is a conflict naming both
	// requirers, never a silent repin.
	res, err := orch.Install(context.Background(), []installer.Spec{mustSpec(t, "tool-c@1.0.0")})
	require.Error(t, err)

	var conflict *resolver.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "shared-lib", conflict.Name.String())
	assert.Contains(t, err.Error(), "tool-a@1.0.0 (locked)")
	assert.Contains(t, err.Error(), "tool-c@1.0.0")
	assert.Equal(t, installer.StateFailed, res.State)

	// The lock keeps its internally consistent pins: every dependency
	// edge still points at a locked version.
	lock, loadErr := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, loadErr)
	require.NotNil(t, lock)
	assert.Equal(t, "1.0.0", lock.Packages["shared-lib"].Version)
	assert.Equal(t, "1.0.0", lock.Packages["tool-a"].Dependencies["shared-lib"])
	assert.Equal(t, "1.0.0", lock.Packages["tool-b"].Dependencies["shared-lib"])
	_, locked := lock.Packages["tool-c"]
	assert.False(t, locked)

	_, statErr := os.Stat(filepath.Join(ws.Root, "packages", "tool-c"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDryRunMutatesNothing(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "dep-lib", "1.1.0", nil)
	publish(t, reg, "tool", "1.0.0", map[string]string{"dep-lib": "^1.0.0"})
	ws := workspace(t, reg)

	res, err := installer.New(ws, installer.Options{DryRun: true}).Install(
		context.Background(), []installer.Spec{mustSpec(t, "tool@^1.0.0")})
	require.NoError(t, err)

	assert.Equal(t, installer.StateDone, res.State)
	assert.Equal(t, []string{"dep-lib@1.1.0", "tool@1.0.0"}, res.Planned)
	assert.Empty(t, res.Installed)
	assert.Zero(t, reg.ArchiveFetches())

	lock, loadErr := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, loadErr)
	assert.Nil(t, lock)

	// Not even the lock file directory or the advisory flock file may
	// appear: the workspace root stays exactly as it was.
	entries, readErr := os.ReadDir(ws.Root)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestChecksumMismatchNeverExtracts(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "tampered-tool", "1.0.0", nil)
	reg.Corrupt("tampered-tool", "1.0.0")
	ws := workspace(t, reg)

	res, err := installer.New(ws, installer.Options{}).Install(
		context.Background(), []installer.Spec{mustSpec(t, "tampered-tool@1.0.0")})
	require.Error(t, err)

	assert.Equal(t, installer.StateFailed, res.State)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, installer.FailureChecksum, res.Failed[0].Kind)
	assert.Contains(t, res.Failed[0].Message, "tampered-tool@1.0.0")
	assert.Empty(t, res.Installed)

	// No package directory and no staging debris.
	_, statErr := os.Stat(filepath.Join(ws.Root, "packages"))
	assert.True(t, os.IsNotExist(statErr))
	entries, readErr := os.ReadDir(filepath.Join(ws.Root, ".staging"))
	if readErr == nil {
		assert.Empty(t, entries)
	}

	// A fully failed batch must not write a lock file either.
	lock, loadErr := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, loadErr)
	assert.Nil(t, lock)
}

func TestFailedClosureExcludedFromLock(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "good-tool", "1.0.0", nil)
	publish(t, reg, "bad-dep", "1.0.0", nil)
	publish(t, reg, "bad-tool", "1.0.0", map[string]string{"bad-dep": "1.0.0"})
	reg.Corrupt("bad-dep", "1.0.0")
	ws := workspace(t, reg)

	res, err := installer.New(ws, installer.Options{}).Install(context.Background(), []installer.Spec{
		mustSpec(t, "good-tool@1.0.0"),
		mustSpec(t, "bad-tool@1.0.0"),
	})
	require.Error(t, err)

	// The checksum failure of the dependency is attributed to the
	// requested package whose closure contains it.
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "bad-tool", res.Failed[0].Package.String())
	assert.Equal(t, installer.FailureChecksum, res.Failed[0].Kind)

	require.Len(t, res.Installed, 1)
	assert.Equal(t, "good-tool", res.Installed[0].Name.String())

	lock, err := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, err)
	require.NotNil(t, lock)
	_, ok := lock.Package("good-tool")
	assert.True(t, ok)
	_, ok = lock.Package("bad-tool")
	assert.False(t, ok, "a package with a failed closure must not be locked")
	_, ok = lock.Package("bad-dep")
	assert.False(t, ok)
}

func TestLockReplayPinsVersions(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "pinned-lib", "1.0.0", nil)
	ws := workspace(t, reg)
	specs := []installer.Spec{mustSpec(t, "pinned-lib@^1.0.0")}

	_, err := installer.New(ws, installer.Options{}).Install(context.Background(), specs)
	require.NoError(t, err)

	// A newer satisfying version appears after the lock was written.
	publish(t, reg, "pinned-lib", "1.5.0", nil)

	res, err := installer.New(ws, installer.Options{}).Install(context.Background(), specs)
	require.NoError(t, err)

	require.Len(t, res.Installed, 1)
	assert.Equal(t, "1.0.0", res.Installed[0].Version.String(), "replay must keep the locked version")

	lock, err := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, err)
	entry, _ := lock.Package("pinned-lib")
	assert.Equal(t, "1.0.0", entry.Version)
}

func TestUpgradeResolvesFresh(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "lib", "1.0.0", nil)
	ws := workspace(t, reg)
	specs := []installer.Spec{mustSpec(t, "lib@^1.0.0")}

	_, err := installer.New(ws, installer.Options{}).Install(context.Background(), specs)
	require.NoError(t, err)

	publish(t, reg, "lib", "1.5.0", nil)

	res, err := installer.New(ws, installer.Options{Upgrade: true}).Install(context.Background(), specs)
	require.NoError(t, err)

	require.Len(t, res.Installed, 1)
	assert.Equal(t, "1.5.0", res.Installed[0].Version.String())

	lock, err := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, err)
	entry, _ := lock.Package("lib")
	assert.Equal(t, "1.5.0", entry.Version)
}

func TestSignatureRequiredButAbsent(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	publish(t, reg, "unsigned-tool", "1.0.0", nil)
	ws := workspace(t, reg)
	ws.TrustPolicy = verify.TrustPolicy{RequireSignature: true}

	res, err := installer.New(ws, installer.Options{}).Install(
		context.Background(), []installer.Spec{mustSpec(t, "unsigned-tool@1.0.0")})
	require.Error(t, err)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, installer.FailureSignature, res.Failed[0].Kind)
	assert.Contains(t, res.Failed[0].Message, "signature required but absent")
}

func TestUsageErrors(t *testing.T) {
	t.Parallel()

	ws := workspace(t, registrytest.New("team"))
	orch := installer.New(ws, installer.Options{})

	_, err := orch.Install(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, exitcode.Usage, exitcode.Code(err))

	_, err = orch.Install(context.Background(), []installer.Spec{
		mustSpec(t, "tool@1.0.0"),
		mustSpec(t, "tool@^1.0.0"),
	})
	require.Error(t, err)
	assert.Equal(t, exitcode.Usage, exitcode.Code(err))

	_, err = installer.New(installer.WorkspaceContext{Root: t.TempDir()}, installer.Options{}).
		Install(context.Background(), []installer.Spec{mustSpec(t, "tool")})
	require.Error(t, err)
	assert.Equal(t, exitcode.Usage, exitcode.Code(err))
}

func TestMultiRegistrySearchOrder(t *testing.T) {
	t.Parallel()

	primary := registrytest.New("primary")
	fallback := registrytest.New("fallback")
	publish(t, primary, "common-tool", "1.0.0", nil)
	publish(t, fallback, "common-tool", "2.0.0", nil)
	publish(t, fallback, "fallback-only", "1.0.0", nil)
	ws := workspace(t, primary, fallback)

	res, err := installer.New(ws, installer.Options{}).Install(context.Background(), []installer.Spec{
		mustSpec(t, "common-tool"),
		mustSpec(t, "fallback-only"),
	})
	require.NoError(t, err)

	require.Len(t, res.Installed, 2)
	lock, err := lockfile.Load(filepath.Join(ws.Root, "aam-lock.yaml"))
	require.NoError(t, err)

	// The first registry claims common-tool even though the second has a
	// newer version.
	common, _ := lock.Package("common-tool")
	assert.Equal(t, "1.0.0", common.Version)
	assert.Equal(t, "primary", common.Source)

	only, _ := lock.Package("fallback-only")
	assert.Equal(t, "fallback", only.Source)
}
