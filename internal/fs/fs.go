package fs

// Output directories are read and written through this interface so that
// tests can run against an in-memory file system. All paths use forward
// slashes, on every platform.

import (
	"path"
	"sort"
)

type EntryKind uint8

const (
	DirEntry  EntryKind = 1
	FileEntry EntryKind = 2
)

type FS interface {
	ReadFile(path string) (string, error)

	// Creates missing parent directories
	WriteFile(path string, contents []byte) error

	RemoveFile(path string) error

	// The returned map is owned by the caller
	ReadDirectory(path string) (map[string]EntryKind, error)
}

// Returns every file below "dir", relative to it and sorted
func Walk(fs FS, dir string) ([]string, error) {
	var files []string
	var visit func(rel string) error
	visit = func(rel string) error {
		entries, err := fs.ReadDirectory(path.Join(dir, rel))
		if err != nil {
			return err
		}
		for name, kind := range entries {
			child := path.Join(rel, name)
			if kind == DirEntry {
				if err := visit(child); err != nil {
					return err
				}
			} else {
				files = append(files, child)
			}
		}
		return nil
	}
	if err := visit(""); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
