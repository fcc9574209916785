// Package testgen provides utilities for generating test files (EPUB, PDF,
// OPF sidecars, zip archives, cover images) with configurable metadata for
// testing extraction and import.
package testgen

import (
	"os"
	"path/filepath"
	"testing"
)

// EPUBOptions configures the generated EPUB file.
type EPUBOptions struct {
	Title       string
	Authors     []string
	Description string
	Language    string // defaults to "en"; "-" omits dc:language
	Subject     string
	HasCover    bool
	// CoverMimeType is "image/jpeg" or "image/png", defaults to "image/png".
	CoverMimeType string
	// CoverStrategy selects how the cover is declared: "meta" (EPUB2
	// <meta name="cover">, the default), "properties" (EPUB3
	// properties="cover-image"), or "name" (only an item whose href contains
	// "cover").
	CoverStrategy string
	// OPFPath is where the package document lives, defaults to
	// "OEBPS/content.opf".
	OPFPath string
}

// PDFOptions configures the generated PDF file.
type PDFOptions struct {
	Title   string
	Author  string
	Subject string
	// Lang is written to the document catalog's /Lang entry.
	Lang string
	// Text is drawn on the first page.
	Text string
}

// OPFOptions configures a standalone OPF sidecar document. Empty fields are
// omitted.
type OPFOptions struct {
	Title       string
	Creator     string
	Description string
	Language    string
	Subject     string
	// DCTerms writes every element under the DC terms namespace instead of
	// the DC elements namespace.
	DCTerms bool
}

// TempDir creates a temporary directory for testing and registers cleanup.
// The directory is automatically removed when the test completes.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// CreateSubDir creates a subdirectory within the given parent directory.
// Returns the full path to the created subdirectory.
func CreateSubDir(t *testing.T, parent, name string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create subdirectory %s: %v", dir, err)
	}
	return dir
}

// WriteFile creates a file with the given content in the specified directory.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads and returns the contents of a file.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return data
}

// CountFiles returns the number of regular files directly inside dir.
func CountFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("failed to read dir %s: %v", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n
}
