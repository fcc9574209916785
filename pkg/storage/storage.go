// Package storage keeps stored book and cover files in two buckets on local
// disk.
package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/fileutils"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
)

var ErrInvalidName = errors.New("invalid stored filename")

type Store struct {
	booksDir  string
	coversDir string
}

func New(cfg *config.Config) (*Store, error) {
	return NewAt(cfg.BooksDir(), cfg.CoversDir())
}

// NewAt creates the bucket directories if they don't exist yet.
func NewAt(booksDir, coversDir string) (*Store, error) {
	for _, dir := range []string{booksDir, coversDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return &Store{booksDir: booksDir, coversDir: coversDir}, nil
}

// StoredName derives a collision-resistant name from an original filename:
// a random UUID, then the slugged base name, then the lowercased extension.
func StoredName(original string) string {
	base := slug.Make(fileutils.SanitizeFilename(fileutils.BaseNameWithoutExt(original)))
	if base == "" {
		base = "book"
	}
	return uuid.New().String() + "_" + base + fileutils.LowerExt(original)
}

// CoverName derives a cover's stored name from the stored book name.
func CoverName(storedBookName, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fileutils.BaseNameWithoutExt(storedBookName) + "_cover" + ext
}

// SaveBook copies the file at src into the books bucket and returns its
// stored name and size.
func (s *Store) SaveBook(src, originalName string) (string, int64, error) {
	name := StoredName(originalName)
	n, err := fileutils.CopyFile(src, filepath.Join(s.booksDir, name))
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to store book file")
	}
	return name, n, nil
}

// SaveCover writes a cover image for the given stored book.
func (s *Store) SaveCover(storedBookName string, data []byte, ext string) (string, error) {
	name := CoverName(storedBookName, ext)
	if err := fileutils.WriteFile(filepath.Join(s.coversDir, name), data); err != nil {
		return "", errors.Wrap(err, "failed to store cover file")
	}
	return name, nil
}

func (s *Store) BookPath(name string) (string, error) {
	return resolve(s.booksDir, name)
}

func (s *Store) CoverPath(name string) (string, error) {
	return resolve(s.coversDir, name)
}

// RemoveBook deletes a stored book. Missing files are not an error.
func (s *Store) RemoveBook(name string) error {
	p, err := s.BookPath(name)
	if err != nil {
		return err
	}
	return fileutils.RemoveIfExists(p)
}

// RemoveCover deletes a stored cover. Missing files are not an error.
func (s *Store) RemoveCover(name string) error {
	p, err := s.CoverPath(name)
	if err != nil {
		return err
	}
	return fileutils.RemoveIfExists(p)
}

func resolve(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", errors.WithStack(ErrInvalidName)
	}
	return filepath.Join(dir, name), nil
}
