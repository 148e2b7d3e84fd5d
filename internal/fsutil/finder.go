// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// FindFiles walks each directory in dirs (relative to root) and returns the
// regular files found as slash-separated paths relative to root, sorted and
// without duplicates. Directories that do not exist are skipped. skipDir,
// when non-nil, prunes directories by their relative path.
func FindFiles(root string, dirs []string, skipDir func(rel string) bool) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, dir := range dirs {
		start := filepath.Join(root, filepath.FromSlash(dir))
		err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == start && errors.Is(err, fs.ErrNotExist) {
					return fs.SkipAll
				}
				return err
			}
			rel, err := Rel(root, p)
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != start && skipDir != nil && skipDir(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if _, dup := seen[rel]; !dup {
				seen[rel] = struct{}{}
				files = append(files, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.Sort(files)
	return files, nil
}

// Rel returns target relative to root with forward slashes.
func Rel(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// StripFirstDir removes the leading directory from a slash path, so
// "app/assets/img/a.png" becomes "assets/img/a.png".
func StripFirstDir(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Within reports whether the slash path p equals dir or lies below it.
func Within(p, dir string) bool {
	dir = path.Clean(dir)
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// WriteAtomic writes data to name through a temporary file in the same
// directory followed by a rename, creating parent directories as needed.
func WriteAtomic(name string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, name); err != nil {
		return err
	}

	success = true
	return nil
}
