package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"//", "/"},
		{"a", "/a"},
		{"/a/b", "/a/b"},
		{"/a/b/", "/a/b"},
		{"a//b///c", "/a/b/c"},
		{`\a\b`, "/a/b"},
		{"/a/./b", "/a/b"},
		{"/VirtualMacros/demo.iim", "/VirtualMacros/demo.iim"},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"", "/", "a//b/", `\x\y\`, "/deep/nested/path/file.txt"}
	for _, in := range inputs {
		once, err := Normalize(in)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeRejectsOSPaths(t *testing.T) {
	for _, in := range []string{`C:\macros\a.iim`, "C:/macros", "d:/tmp", `Z:\`} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalidPath, "input %q", in)
	}

	// A drive-letter lookalike without a separator is just a file name.
	got, err := Normalize("C:")
	require.NoError(t, err)
	assert.Equal(t, "/C:", got)
}

func TestParentBase(t *testing.T) {
	assert.Equal(t, "/", Parent("/"))
	assert.Equal(t, "/", Parent("/a"))
	assert.Equal(t, "/a/b", Parent("/a/b/c"))
	assert.Equal(t, "", Base("/"))
	assert.Equal(t, "c", Base("/a/b/c"))
}

func TestAncestors(t *testing.T) {
	assert.Nil(t, Ancestors("/"))
	assert.Empty(t, Ancestors("/a"))
	assert.Equal(t, []string{"/a", "/a/b"}, Ancestors("/a/b/c"))
}

func TestRelationships(t *testing.T) {
	assert.True(t, IsDescendant("/", "/a"))
	assert.True(t, IsDescendant("/a", "/a/b/c"))
	assert.False(t, IsDescendant("/a", "/ab"))
	assert.False(t, IsDescendant("/a", "/a"))

	assert.True(t, IsImmediateChild("/a", "/a/b"))
	assert.False(t, IsImmediateChild("/a", "/a/b/c"))
	assert.True(t, IsImmediateChild("/", "/a"))

	assert.Equal(t, "b/c", Relative("/a", "/a/b/c"))
	assert.Equal(t, "a", Relative("/", "/a"))

	assert.Equal(t, "/a/b", Join("/a", "b"))
	assert.Equal(t, "/b", Join("/", "b"))
	assert.Equal(t, "/a", Join("/a", ""))
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth("/"))
	assert.Equal(t, 1, Depth("/a"))
	assert.Equal(t, 3, Depth("/a/b/c"))
}
