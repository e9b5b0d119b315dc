package helpers

import (
	"path"
	"strings"
)

// Output paths are always relative to the output directory and always use
// forward slashes, independent of the host platform.
func ToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func Dir(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

// Returns an import path from the directory "fromDir" to "toPath". The result
// always starts with "./" or "../" so that it can't be mistaken for a package
// path.
func RelativePath(fromDir string, toPath string) string {
	from := splitPath(fromDir)
	to := splitPath(toPath)

	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}

	parts := make([]string, 0, len(from)-common+len(to)-common)
	for i := common; i < len(from); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)
	relPath := strings.Join(parts, "/")

	if !strings.HasPrefix(relPath, "../") {
		relPath = "./" + relPath
	}
	return relPath
}

func splitPath(p string) []string {
	p = strings.Trim(path.Clean("/"+ToSlash(p)), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Resolves a relative import specifier against the unit that contains it.
// Returns false for bare and absolute specifiers, which never name another
// output unit.
func ResolveRelative(fromUnit string, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") {
		return "", false
	}
	if i := strings.IndexAny(specifier, "?#"); i != -1 {
		specifier = specifier[:i]
	}
	joined := path.Join(Dir(fromUnit), specifier)
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", false
	}
	return joined, true
}

// Prefixes an output-relative path with the base the output directory is
// served at. An empty base keeps the result relative to the page.
func JoinWithPublicPath(publicPath string, relPath string) string {
	for strings.HasPrefix(relPath, "./") || strings.HasPrefix(relPath, "/") {
		relPath = strings.TrimPrefix(strings.TrimPrefix(relPath, "./"), "/")
	}
	if publicPath == "" {
		publicPath = "."
	}
	return strings.TrimSuffix(publicPath, "/") + "/" + relPath
}
