package sidecar

import (
	"path/filepath"
	"testing"

	"github.com/bookdrop/bookdrop/internal/testgen"
	"github.com/stretchr/testify/assert"
)

func TestCandidatePaths(t *testing.T) {
	t.Parallel()
	paths := CandidatePaths(filepath.Join("/lib", "author", "book.epub"))
	assert.Equal(t, []string{
		filepath.Join("/lib", "author", "book.opf"),
		filepath.Join("/lib", "author", "metadata.opf"),
		filepath.Join("/lib", "book.opf"),
	}, paths)
}

func TestFind(t *testing.T) {
	t.Parallel()
	root := testgen.TempDir(t, "sidecar-find-*")
	sub := testgen.CreateSubDir(t, root, "author")
	book := filepath.Join(sub, "book.pdf")

	assert.Equal(t, "", Find(book))

	parent := testgen.GenerateOPF(t, root, "book.opf", testgen.OPFOptions{Title: "Parent"})
	assert.Equal(t, parent, Find(book))

	generic := testgen.GenerateOPF(t, sub, "metadata.opf", testgen.OPFOptions{Title: "Generic"})
	assert.Equal(t, generic, Find(book))

	named := testgen.GenerateOPF(t, sub, "book.opf", testgen.OPFOptions{Title: "Named"})
	assert.Equal(t, named, Find(book))
}

func TestIsSidecar(t *testing.T) {
	t.Parallel()
	assert.True(t, IsSidecar("metadata.OPF"))
	assert.False(t, IsSidecar("book.epub"))
}
