package agentsessions

import (
	"path/filepath"
	"strings"
)

// Canonicalize resolves path to an absolute, symlink-free, cleaned form.
// It reports false when the path cannot be resolved (missing, permission
// denied); callers fall back to the original path.
func Canonicalize(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	return filepath.Clean(resolved), true
}

// CanonicalOrSelf returns the canonical form of path, or path unchanged when
// it cannot be resolved.
func CanonicalOrSelf(path string) string {
	if canonical, ok := Canonicalize(path); ok {
		return canonical
	}
	return path
}

// WithinDir reports whether dir is root or lies beneath it. Both sides are
// canonicalized first because agents record working directories as raw
// strings that may go through symlinks.
func WithinDir(root, dir string) bool {
	if root == "" || dir == "" {
		return false
	}
	rootAbs := canonicalAbs(root)
	dirAbs := canonicalAbs(dir)

	rel, err := filepath.Rel(rootAbs, dirAbs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func canonicalAbs(path string) string {
	if canonical, ok := Canonicalize(path); ok {
		return canonical
	}
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}
