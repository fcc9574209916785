package sidecar

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	Extension   = ".opf"
	DefaultName = "metadata.opf"
)

// CandidatePaths returns the locations a sidecar for bookPath may live at,
// in lookup order: {dir}/{base}.opf, {dir}/metadata.opf and
// {parent}/{base}.opf.
func CandidatePaths(bookPath string) []string {
	dir := filepath.Dir(bookPath)
	base := strings.TrimSuffix(filepath.Base(bookPath), filepath.Ext(bookPath))
	paths := []string{
		filepath.Join(dir, base+Extension),
		filepath.Join(dir, DefaultName),
	}
	if parent := filepath.Dir(dir); parent != dir {
		paths = append(paths, filepath.Join(parent, base+Extension))
	}
	return paths
}

// Find returns the first existing sidecar for bookPath, or "".
func Find(bookPath string) string {
	for _, p := range CandidatePaths(bookPath) {
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

// IsSidecar reports whether name looks like an OPF descriptor.
func IsSidecar(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Extension)
}
