package fs

import (
	"os"
	"path/filepath"
)

type realFS struct {
	root string
}

// A file system rooted at "root". Relative paths are resolved against it and
// absolute paths are used as-is.
func RealFS(root string) FS {
	return &realFS{root: root}
}

func (fs *realFS) abs(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(fs.root, p)
}

func (fs *realFS) ReadFile(p string) (string, error) {
	contents, err := os.ReadFile(fs.abs(p))
	if err != nil {
		return "", &PathError{Op: "read", Path: p, Err: err}
	}
	return string(contents), nil
}

func (fs *realFS) WriteFile(p string, contents []byte) error {
	abs := fs.abs(p)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return &PathError{Op: "mkdir", Path: p, Err: err}
	}
	if err := os.WriteFile(abs, contents, 0644); err != nil {
		return &PathError{Op: "write", Path: p, Err: err}
	}
	return nil
}

func (fs *realFS) RemoveFile(p string) error {
	if err := os.Remove(fs.abs(p)); err != nil {
		return &PathError{Op: "remove", Path: p, Err: err}
	}
	return nil
}

func (fs *realFS) ReadDirectory(p string) (map[string]EntryKind, error) {
	items, err := os.ReadDir(fs.abs(p))
	if err != nil {
		return nil, &PathError{Op: "readdir", Path: p, Err: err}
	}
	entries := make(map[string]EntryKind, len(items))
	for _, item := range items {
		kind := FileEntry
		if item.IsDir() {
			kind = DirEntry
		} else if item.Type()&os.ModeSymlink != 0 {
			// Follow symlinks so a linked directory is still walked
			if info, err := os.Stat(filepath.Join(fs.abs(p), item.Name())); err == nil && info.IsDir() {
				kind = DirEntry
			}
		}
		entries[item.Name()] = kind
	}
	return entries, nil
}
