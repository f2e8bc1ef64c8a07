package agentsessions

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deniedFS refuses to list one directory.
type deniedFS struct {
	fstest.MapFS
	dir string
}

func (f deniedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == f.dir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.ReadDir(name)
}

func sessionTree() fstest.MapFS {
	return fstest.MapFS{
		"a/one.jsonl":   {Data: []byte("{}\n")},
		"a/b/two.jsonl": {Data: []byte("{}\n")},
		"c/three.jsonl": {Data: []byte("{}\n")},
		"c/notes.txt":   {Data: []byte("x")},
	}
}

func TestWalkTranscriptsMatchesPattern(t *testing.T) {
	files, err := walkTranscripts(sessionTree(), "/root", "**/*.jsonl")
	require.NoError(t, err)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		filepath.Join("/root", "a", "b", "two.jsonl"),
		filepath.Join("/root", "a", "one.jsonl"),
		filepath.Join("/root", "c", "three.jsonl"),
	}, paths)

	files, err = walkTranscripts(sessionTree(), "/root", "*/*.jsonl")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestWalkTranscriptsReportsUnreadableDirectories(t *testing.T) {
	for _, tc := range []struct {
		name, dir, pattern string
	}{
		{"root flat", ".", "*/*.jsonl"},
		{"root recursive", ".", "**/*.jsonl"},
		{"nested recursive", "a", "**/*.jsonl"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			files, err := walkTranscripts(deniedFS{MapFS: sessionTree(), dir: tc.dir}, "/root", tc.pattern)
			require.ErrorIs(t, err, fs.ErrPermission)
			assert.Nil(t, files)
		})
	}
}

func TestListTranscriptsMissingRoot(t *testing.T) {
	files, err := ListTranscripts(filepath.Join(t.TempDir(), "absent"), "**/*.jsonl")
	require.NoError(t, err)
	assert.Empty(t, files)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = ListTranscripts(file, "**/*.jsonl")
	assert.Error(t, err)
}
