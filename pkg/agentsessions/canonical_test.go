package agentsessions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeResolvesSymlinks(t *testing.T) {
	base := t.TempDir()
	real := filepath.Join(base, "real")
	require.NoError(t, os.Mkdir(real, 0o755))
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(real, link))

	want, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)

	got, ok := Canonicalize(link + "/./")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestCanonicalizeMissingPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")

	got, ok := Canonicalize(missing)
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.Equal(t, missing, CanonicalOrSelf(missing))

	_, ok = Canonicalize("")
	assert.False(t, ok)
}

func TestWithinDir(t *testing.T) {
	base := t.TempDir()
	for _, dir := range []string{"a/b/c", "a/bc"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, dir), 0o755))
	}
	link := filepath.Join(base, "via")
	require.NoError(t, os.Symlink(filepath.Join(base, "a", "b"), link))

	tests := []struct {
		name string
		root string
		dir  string
		want bool
	}{
		{"same dir", "a/b", "a/b", true},
		{"nested", "a/b", "a/b/c", true},
		{"sibling with shared prefix", "a/b", "a/bc", false},
		{"parent", "a/b/c", "a/b", false},
		{"through symlink", "a/b", "via/c", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithinDir(filepath.Join(base, tt.root), filepath.Join(base, tt.dir))
			assert.Equal(t, tt.want, got)
		})
	}

	assert.False(t, WithinDir("", base))
	assert.False(t, WithinDir(base, ""))
}
