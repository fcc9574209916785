package fileutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0600))

	dst := filepath.Join(dir, "nested", "dst.txt")
	n, err := CopyFile(src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = CopyFile(src, dst)
	assert.Error(t, err, "existing destinations are never overwritten")
}

func TestCopyFile_MissingSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "dst"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteFileAndRemove(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	dst := filepath.Join(dir, "a", "b.bin")

	require.NoError(t, WriteFile(dst, []byte{1, 2, 3}))
	assert.Error(t, WriteFile(dst, []byte{4}))

	require.NoError(t, RemoveIfExists(dst))
	require.NoError(t, RemoveIfExists(dst))
	require.NoError(t, RemoveIfExists(""))
}

func TestMoveFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("moved"), 0600))

	dst := filepath.Join(dir, "out", "dst.txt")
	require.NoError(t, MoveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "moved", string(data))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"  lots   of\tspace  ", "lots of space"},
		{"line\r\nbreak", "line break"},
		{"bell\x07ringer", "bellringer"},
		{"trailing dots...", "trailing dots"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}
}

func TestBaseNameWithoutExt(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "my_book_01", BaseNameWithoutExt("/x/y/my_book_01.pdf"))
	assert.Equal(t, "archive.tar", BaseNameWithoutExt("archive.tar.gz"))
	assert.Equal(t, ".epub", LowerExt("Book.EPUB"))
}
