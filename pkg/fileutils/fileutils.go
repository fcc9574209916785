package fileutils

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	// Control characters except the ones \s matches, which collapse to a
	// space instead.
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x08\x0b\x0e-\x1f]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// CopyFile copies src to dst, creating dst's directory if needed. It returns
// the number of bytes copied. A partially written dst is removed.
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, errors.WithStack(err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return 0, errors.WithStack(err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return 0, errors.WithStack(err)
	}
	return n, nil
}

// WriteFile writes data to dst, refusing to overwrite an existing file.
func WriteFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.WithStack(err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		os.Remove(dst)
		return errors.WithStack(err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return errors.WithStack(err)
	}
	return nil
}

// MoveFile renames src to dst, falling back to copy and delete across
// filesystems.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if _, err := CopyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		os.Remove(dst)
		return errors.WithStack(err)
	}
	return nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

// SanitizeFilename strips characters that aren't safe in filenames on common
// filesystems and bounds the length.
func SanitizeFilename(name string) string {
	name = invalidChars.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, " ")
	// Windows doesn't like trailing dots.
	name = strings.Trim(name, " .")
	if len(name) > 200 {
		name = strings.Trim(name[:200], " .")
	}
	return name
}

// BaseNameWithoutExt returns the filename without its directory and
// extension.
func BaseNameWithoutExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LowerExt returns the lowercased extension of path including the dot.
func LowerExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
