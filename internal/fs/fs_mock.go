package fs

// This is a mock implementation of the "fs" module for use with tests. It does
// not actually read from the file system. Instead, it reads from a pre-specified
// map of file paths to files.

import (
	"path"
	"strings"
	"sync"
	"syscall"
)

type mockFS struct {
	mutex sync.Mutex
	files map[string]string
}

func MockFS(input map[string]string) FS {
	files := make(map[string]string)
	for k, v := range input {
		files[clean(k)] = v
	}
	return &mockFS{files: files}
}

func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (fs *mockFS) ReadFile(p string) (string, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if contents, ok := fs.files[clean(p)]; ok {
		return contents, nil
	}
	return "", &PathError{Op: "read", Path: p, Err: syscall.ENOENT}
}

func (fs *mockFS) WriteFile(p string, contents []byte) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.files[clean(p)] = string(contents)
	return nil
}

func (fs *mockFS) RemoveFile(p string) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	key := clean(p)
	if _, ok := fs.files[key]; !ok {
		return &PathError{Op: "remove", Path: p, Err: syscall.ENOENT}
	}
	delete(fs.files, key)
	return nil
}

func (fs *mockFS) ReadDirectory(p string) (map[string]EntryKind, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	// Build the directory listing from the file paths
	dir := clean(p)
	prefix := dir + "/"
	if dir == "" {
		prefix = ""
	}
	entries := make(map[string]EntryKind)
	for k := range fs.files {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if slash := strings.IndexByte(rest, '/'); slash != -1 {
			entries[rest[:slash]] = DirEntry
		} else {
			entries[rest] = FileEntry
		}
	}
	if len(entries) == 0 {
		return nil, &PathError{Op: "readdir", Path: p, Err: syscall.ENOENT}
	}
	return entries, nil
}

// Returns a copy of every file, for tests
func Snapshot(fs FS) map[string]string {
	mock, ok := fs.(*mockFS)
	if !ok {
		return nil
	}
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	files := make(map[string]string, len(mock.files))
	for k, v := range mock.files {
		files[k] = v
	}
	return files
}
