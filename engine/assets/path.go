package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// canonicalRoot returns the absolute, symlink-free form of an existing directory.
func canonicalRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %s", core.ErrInvalidRoot, path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", core.ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", core.ErrInvalidRoot, abs)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

// resolvePath maps path, relative to root or absolute, to its absolute form
// and to the slash-separated path relative to root used in keys. Symlinks in
// the parent directories are resolved so that aliases of the root collapse;
// the file name itself is left alone.
func resolvePath(root, path string) (absPath, relPath string) {
	if filepath.IsAbs(path) {
		absPath = filepath.Clean(path)
	} else {
		absPath = filepath.Join(root, filepath.FromSlash(path))
	}
	dir, base := filepath.Split(absPath)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		absPath = filepath.Join(resolved, base)
	}

	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		core.LogWarn("asset path '%s' cannot be made relative to '%s': %s", path, root, err)
		return absPath, filepath.ToSlash(absPath)
	}
	relPath = filepath.ToSlash(rel)
	if relPath == ".." || strings.HasPrefix(relPath, "../") {
		core.LogWarn("asset path '%s' is outside the root directory '%s'", path, root)
	}
	return absPath, relPath
}

// absolutePath is the inverse of resolvePath for paths recorded in the index.
func absolutePath(root, relPath string) string {
	p := filepath.FromSlash(relPath)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// pathWithin reports whether relPath is dir itself or lies below it.
func pathWithin(relPath, dir string) bool {
	return relPath == dir || dir == "." || strings.HasPrefix(relPath, dir+"/")
}
