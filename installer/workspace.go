// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/adrg/xdg"

	"github.com/spazyCZ/agent-package-manager-sub001/manifest"
	"github.com/spazyCZ/agent-package-manager-sub001/registry"
	"github.com/spazyCZ/agent-package-manager-sub001/verify"
)

const (
	lockFileName    = "aam-lock.yaml"
	packagesDirName = "packages"
	stagingDirName  = ".staging"
)

// DefaultWorkspaceRoot returns the default workspace directory under
// the XDG data home.
func DefaultWorkspaceRoot() string {
	return filepath.Join(xdg.DataHome, "aam", "workspace")
}

// WorkspaceContext carries everything an install operates on: where
// packages land, which registries serve them, and what trust policy
// gates their signatures.
type WorkspaceContext struct {
	// Root is the workspace directory. Empty selects DefaultWorkspaceRoot.
	Root string
	// LockfilePath overrides the lock file location. Empty places it at
	// the workspace root.
	LockfilePath string
	// Registries are queried in order; the first registry offering a
	// package claims it.
	Registries []registry.Registry
	// TrustPolicy gates archive signatures during install.
	TrustPolicy verify.TrustPolicy
}

func (w *WorkspaceContext) root() string {
	if w.Root == "" {
		return DefaultWorkspaceRoot()
	}
	return w.Root
}

func (w *WorkspaceContext) lockfilePath() string {
	if w.LockfilePath != "" {
		return w.LockfilePath
	}
	return filepath.Join(w.root(), lockFileName)
}

// InstallDir returns the directory installed packages live under, one
// subtree per package name and version.
func (w *WorkspaceContext) InstallDir() string {
	return filepath.Join(w.root(), packagesDirName)
}

// StagingDir returns the directory archives are extracted into before
// their atomic move into InstallDir. An interrupted install leaves at
// most an orphaned subdirectory here.
func (w *WorkspaceContext) StagingDir() string {
	return filepath.Join(w.root(), stagingDirName)
}

// packagePath is the final install location of one package version.
// Scoped names keep their scope as a directory level.
func (w *WorkspaceContext) packagePath(name manifest.PackageName, version *semver.Version) string {
	return filepath.Join(w.InstallDir(), filepath.FromSlash(name.String()), version.String())
}

func (w *WorkspaceContext) validate() error {
	if len(w.Registries) == 0 {
		return fmt.Errorf("workspace has no registries configured")
	}
	return nil
}
