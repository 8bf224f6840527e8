package file

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ReplaceExt swaps the extension of path for ext. A missing leading dot is added.
func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filepath.Join(dir, filename+ext)
	}
	return filepath.Join(dir, filename[:lastDot]+ext)
}

// BaseName returns the file name without directory and extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// HasExt reports whether name ends with one of exts (case-insensitive, dot optional).
func HasExt(name string, exts ...string) bool {
	got := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if got == "" {
		return false
	}
	for _, ext := range exts {
		if strings.TrimPrefix(strings.ToLower(ext), ".") == got {
			return true
		}
	}
	return false
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename flattens an uploaded file name into a single safe path component:
// directory parts are dropped, whitespace becomes '_', anything outside
// [A-Za-z0-9_.-] is removed and leading dots are stripped.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	return name
}
