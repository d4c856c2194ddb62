// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spazyCZ/agent-package-manager-sub001/archive"
	"github.com/spazyCZ/agent-package-manager-sub001/registry/registrytest"
	"github.com/spazyCZ/agent-package-manager-sub001/resolver"
)

func TestResultAdvanceNeverRegresses(t *testing.T) {
	t.Parallel()

	res := &Result{State: StateResolving}

	res.advance(StateVerifying)
	assert.Equal(t, StateVerifying, res.State)

	// A stale report from a slower package pipeline must not move the
	// state backwards.
	res.advance(StateFetching)
	assert.Equal(t, StateVerifying, res.State)

	res.advance(StateInstalling)
	assert.Equal(t, StateInstalling, res.State)
}

func TestMaterializeReportsPhaseProgress(t *testing.T) {
	t.Parallel()

	reg := registrytest.New("team")
	data, err := archive.Pack([]archive.Entry{
		{Path: "SKILL.md", Content: []byte("# tool\n")},
	}, time.Time{})
	require.NoError(t, err)
	reg.Add(registrytest.Ref("tool", "1.0.0", nil), data)

	spec, err := ParseSpec("tool@1.0.0")
	require.NoError(t, err)
	resolved, err := resolver.Resolve(context.Background(), rootRef([]Spec{spec}), reg)
	require.NoError(t, err)

	o := New(WorkspaceContext{Root: t.TempDir()}, Options{})
	res := &Result{State: StateFetching}

	installed, pkgErrs, err := o.materialize(context.Background(), resolved, reg, res)
	require.NoError(t, err)
	require.Empty(t, pkgErrs)
	require.Len(t, installed, 1)

	// Every pipeline phase was passed, so the shared state sits at the
	// last one.
	assert.Equal(t, StateInstalling, res.State)
}
