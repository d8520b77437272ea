// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtensions returns the full paths of all files under rootPath
// whose name ends with one of the given extensions. If rootPath is itself a
// regular file it is returned as-is, regardless of extension, so that a user
// can point the CLI at a single document.
func FindFilesByExtensions(rootPath string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		panic("at least one extension is required")
	}

	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{rootPath}, nil
	}

	var files []string
	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, ext := range extensions {
			if strings.HasSuffix(d.Name(), ext) {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
