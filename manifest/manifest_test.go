// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spazyCZ/agent-package-manager-sub001/constraint"
)

const sampleManifest = `name: "@acme/code-reviewer"
version: 1.4.0
description: Reviews pull requests
dependencies:
  shared-lib: "^1.0.0"
  "@acme/prompts": ">=2.1.0,<3.0.0"
artifacts:
  - name: reviewer
    type: skill
    path: skills/reviewer
  - name: review-prompt
    type: prompt
    path: prompts/review.md
`

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, PackageName("@acme/code-reviewer"), m.Name)
	assert.Equal(t, "1.4.0", m.Version.String())
	assert.Equal(t, "Reviews pull requests", m.Description)
	assert.Len(t, m.Artifacts, 2)
	assert.Equal(t, "skill", m.Artifacts[0].Type)

	require.Len(t, m.Dependencies, 2)
	c, ok := m.Dependencies[PackageName("shared-lib")]
	require.True(t, ok)
	assert.Equal(t, constraint.KindCaret, c.Kind())
	c, ok = m.Dependencies[PackageName("@acme/prompts")]
	require.True(t, ok)
	assert.Equal(t, constraint.KindRange, c.Kind())
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"empty document", ""},
		{"missing version", "name: foo\n"},
		{"missing name", "version: 1.0.0\n"},
		{"bad name", "name: Foo\nversion: 1.0.0\n"},
		{"bad version", "name: foo\nversion: one\n"},
		{"bad dependency name", "name: foo\nversion: 1.0.0\ndependencies:\n  BAD: \"*\"\n"},
		{"bad dependency constraint", "name: foo\nversion: 1.0.0\ndependencies:\n  bar: \"not-a-constraint\"\n"},
		{"self dependency", "name: foo\nversion: 1.0.0\ndependencies:\n  foo: \"*\"\n"},
		{"unknown top-level key", "name: foo\nversion: 1.0.0\nbogus: true\n"},
		{"artifact missing path", "name: foo\nversion: 1.0.0\nartifacts:\n  - name: a\n    type: skill\n"},
		{"artifact bad type", "name: foo\nversion: 1.0.0\nartifacts:\n  - name: a\n    type: widget\n    path: p\n"},
		{"dependencies not a map", "name: foo\nversion: 1.0.0\ndependencies: [bar]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.data))
			require.Error(t, err)

			var invalid *InvalidError
			require.ErrorAs(t, err, &invalid)
		})
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "artifact.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o600))

		m, err := ParseFile(path)
		require.NoError(t, err)
		assert.Equal(t, PackageName("@acme/code-reviewer"), m.Name)
	})

	t.Run("missing file carries path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "absent.yaml")
		_, err := ParseFile(path)
		require.Error(t, err)

		var invalid *InvalidError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, path, invalid.Path)
	})
}

func TestRef_DependencyNames(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	names := m.Ref().DependencyNames()
	require.Len(t, names, 2)
	assert.Equal(t, PackageName("@acme/prompts"), names[0])
	assert.Equal(t, PackageName("shared-lib"), names[1])
}
