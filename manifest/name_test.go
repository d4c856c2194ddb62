// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageName_Validate(t *testing.T) {
	t.Parallel()

	valid := []string{
		"a",
		"my-skill",
		"skill2",
		"0day-detector",
		strings.Repeat("a", 64),
		"@acme/my-skill",
		"@a/b",
		"@scope-1/name-2",
	}

	for _, s := range valid {
		t.Run("valid "+s, func(t *testing.T) {
			t.Parallel()

			n, err := ParsePackageName(s)
			require.NoError(t, err)
			assert.Equal(t, s, n.String())
		})
	}

	invalid := []string{
		"",
		"-leading-dash",
		"UPPERCASE",
		"has space",
		"has_underscore",
		"name/with-slash",
		"@missing-name",
		"@/name",
		"@scope/",
		"@scope/name/extra",
		"@Scope/name",
		strings.Repeat("a", 65),
		"@" + strings.Repeat("a", 64) + "/" + strings.Repeat("b", 64) + "x",
	}

	for _, s := range invalid {
		t.Run("invalid "+s, func(t *testing.T) {
			t.Parallel()

			_, err := ParsePackageName(s)
			require.Error(t, err)
		})
	}
}

func TestPackageName_Accessors(t *testing.T) {
	t.Parallel()

	t.Run("scoped", func(t *testing.T) {
		t.Parallel()

		n := PackageName("@acme/reviewer")
		assert.True(t, n.Scoped())
		assert.Equal(t, "acme", n.Scope())
		assert.Equal(t, "reviewer", n.Bare())
	})

	t.Run("unscoped", func(t *testing.T) {
		t.Parallel()

		n := PackageName("reviewer")
		assert.False(t, n.Scoped())
		assert.Empty(t, n.Scope())
		assert.Equal(t, "reviewer", n.Bare())
	})
}
