// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package constraint

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustVersion(t *testing.T, s string) *semver.Version {
	t.Helper()
	v, err := ParseVersion(s)
	require.NoError(t, err)
	return v
}

func mustConstraint(t *testing.T, s string) Constraint {
	t.Helper()
	c, err := Parse(s)
	require.NoError(t, err)
	return c
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	t.Run("valid triple", func(t *testing.T) {
		t.Parallel()

		v, err := ParseVersion("1.2.3")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), v.Major())
		assert.Equal(t, uint64(2), v.Minor())
		assert.Equal(t, uint64(3), v.Patch())
	})

	t.Run("rejects pre-release", func(t *testing.T) {
		t.Parallel()

		_, err := ParseVersion("1.2.3-rc.1")
		require.Error(t, err)
	})

	t.Run("rejects build metadata", func(t *testing.T) {
		t.Parallel()

		_, err := ParseVersion("1.2.3+build.5")
		require.Error(t, err)
	})

	t.Run("rejects partial versions", func(t *testing.T) {
		t.Parallel()

		_, err := ParseVersion("1.2")
		require.Error(t, err)
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		wantKind Kind
		wantStr  string
	}{
		{"1.2.3", KindExact, "1.2.3"},
		{"^1.2.3", KindCaret, "^1.2.3"},
		{"~1.2.3", KindTilde, "~1.2.3"},
		{">=1.2.3", KindAtLeast, ">=1.2.3"},
		{"*", KindWildcard, "*"},
		{">=1.0.0,<2.0.0", KindRange, ">=1.0.0,<2.0.0"},
		{" ^1.2.3 ", KindCaret, "^1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			c, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, c.Kind())
			assert.Equal(t, tt.wantStr, c.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	invalid := []string{
		"",
		"not-a-version",
		"^",
		"~abc",
		">=",
		">1.0.0",
		"<2.0.0,>=1.0.0",
		">=1.0.0,<=2.0.0",
		">=2.0.0,<1.0.0",
		">=2.0.0,<2.0.0",
	}

	for _, s := range invalid {
		t.Run(s, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(s)
			require.Error(t, err)
		})
	}
}

func TestSatisfies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		constraint string
		version    string
		want       bool
	}{
		// Exact
		{"1.2.3", "1.2.3", true},
		{"1.2.3", "1.2.4", false},

		// Caret with non-zero major
		{"^1.2.3", "1.2.3", true},
		{"^1.2.3", "1.9.9", true},
		{"^1.2.3", "2.0.0", false},
		{"^1.2.3", "1.2.2", false},

		// Caret with zero major, non-zero minor
		{"^0.2.3", "0.2.3", true},
		{"^0.2.3", "0.2.9", true},
		{"^0.2.3", "0.3.0", false},

		// Caret with zero major and minor: exact only
		{"^0.0.3", "0.0.3", true},
		{"^0.0.3", "0.0.4", false},
		{"^0.0.3", "0.1.0", false},

		// Tilde
		{"~1.2.3", "1.2.3", true},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"~1.2.3", "1.2.2", false},

		// AtLeast
		{">=1.2.3", "1.2.3", true},
		{">=1.2.3", "9.0.0", true},
		{">=1.2.3", "1.2.2", false},

		// Wildcard
		{"*", "0.0.1", true},
		{"*", "99.99.99", true},

		// Range (half-open)
		{">=1.0.0,<2.0.0", "1.0.0", true},
		{">=1.0.0,<2.0.0", "1.9.9", true},
		{">=1.0.0,<2.0.0", "2.0.0", false},
		{">=1.0.0,<2.0.0", "0.9.9", false},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+" vs "+tt.version, func(t *testing.T) {
			t.Parallel()

			c := mustConstraint(t, tt.constraint)
			v := mustVersion(t, tt.version)
			assert.Equal(t, tt.want, c.Satisfies(v))
		})
	}
}

func TestBestMatch(t *testing.T) {
	t.Parallel()

	versions := func(ss ...string) []*semver.Version {
		out := make([]*semver.Version, 0, len(ss))
		for _, s := range ss {
			out = append(out, mustVersion(t, s))
		}
		return out
	}

	t.Run("picks highest satisfying version", func(t *testing.T) {
		t.Parallel()

		got := BestMatch(mustConstraint(t, "^1.0.0"), versions("1.0.0", "1.5.0", "1.9.9", "2.0.0"))
		require.NotNil(t, got)
		assert.Equal(t, "1.9.9", got.String())
	})

	t.Run("exact pin among neighbors", func(t *testing.T) {
		t.Parallel()

		got := BestMatch(mustConstraint(t, "1.2.3"), versions("1.2.2", "1.2.3", "1.3.0"))
		require.NotNil(t, got)
		assert.Equal(t, "1.2.3", got.String())
	})

	t.Run("returns nil when nothing matches", func(t *testing.T) {
		t.Parallel()

		got := BestMatch(mustConstraint(t, "^3.0.0"), versions("1.0.0", "2.0.0"))
		assert.Nil(t, got)
	})

	t.Run("returns nil for empty candidates", func(t *testing.T) {
		t.Parallel()

		got := BestMatch(mustConstraint(t, "*"), nil)
		assert.Nil(t, got)
	})

	t.Run("order independent", func(t *testing.T) {
		t.Parallel()

		a := BestMatch(mustConstraint(t, ">=1.0.0"), versions("1.0.0", "3.1.4", "2.0.0"))
		b := BestMatch(mustConstraint(t, ">=1.0.0"), versions("3.1.4", "2.0.0", "1.0.0"))
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.True(t, a.Equal(b))
	})
}
