package testgen

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// GenerateZip writes a zip archive whose entries are the given slash-separated
// names and contents. Entries are written in sorted order.
func GenerateZip(t *testing.T, dir, filename string, entries map[string][]byte) string {
	t.Helper()

	p := filepath.Join(dir, filename)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("failed to create zip file: %v", err)
	}
	defer f.Close()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		if err := writeZipFile(zw, name, entries[name]); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return p
}
