package importer

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bookdrop/bookdrop/internal/testgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractArchive(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "archive-*")
	zipPath := testgen.GenerateZip(t, dir, "batch.zip", map[string][]byte{
		"one/book.pdf":     []byte("%PDF-1.4"),
		"one/metadata.opf": []byte("<package/>"),
		"two/other.epub":   []byte("PK"),
	})
	workspace := testgen.CreateSubDir(t, dir, "ws")

	require.NoError(t, ExtractArchive(context.Background(), zipPath, workspace, 0))

	assert.Equal(t, []byte("%PDF-1.4"), testgen.ReadFile(t, filepath.Join(workspace, "one", "book.pdf")))
	assert.True(t, testgen.FileExists(filepath.Join(workspace, "one", "metadata.opf")))
	assert.True(t, testgen.FileExists(filepath.Join(workspace, "two", "other.epub")))
}

func TestExtractArchive_RejectsTraversal(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "archive-*")
	zipPath := testgen.GenerateZip(t, dir, "evil.zip", map[string][]byte{
		"../escaped.pdf": []byte("%PDF-1.4"),
	})
	workspace := testgen.CreateSubDir(t, dir, "ws")

	err := ExtractArchive(context.Background(), zipPath, workspace, 0)
	require.ErrorIs(t, err, ErrUnsafePath)
	assert.False(t, testgen.FileExists(filepath.Join(dir, "escaped.pdf")))
}

func TestExtractArchive_SizeLimit(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "archive-*")
	zipPath := testgen.GenerateZip(t, dir, "big.zip", map[string][]byte{
		"a.pdf": make([]byte, 600),
		"b.pdf": make([]byte, 600),
	})
	workspace := testgen.CreateSubDir(t, dir, "ws")

	err := ExtractArchive(context.Background(), zipPath, workspace, 1000)
	require.ErrorIs(t, err, ErrArchiveTooLarge)
}

func TestExtractArchive_NotAZip(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "archive-*")
	p := testgen.WriteFile(t, dir, "broken.zip", []byte("this is not a zip"))

	err := ExtractArchive(context.Background(), p, testgen.CreateSubDir(t, dir, "ws"), 0)
	require.Error(t, err)
}

func TestExtractArchive_SkipsSymlinks(t *testing.T) {
	t.Parallel()
	dir := testgen.TempDir(t, "archive-*")
	zipPath := filepath.Join(dir, "links.zip")

	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	hdr := &zip.FileHeader{Name: "link.pdf", Method: zip.Store}
	hdr.SetMode(os.ModeSymlink | 0o777)
	w, err := zw.CreateHeader(hdr)
	require.NoError(t, err)
	_, err = w.Write([]byte("/etc/passwd"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	workspace := testgen.CreateSubDir(t, dir, "ws")
	require.NoError(t, ExtractArchive(context.Background(), zipPath, workspace, 0))
	assert.Equal(t, 0, testgen.CountFiles(t, workspace))
}

func TestEntryTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "a/b.pdf", want: filepath.Join("/ws", "a", "b.pdf")},
		{name: "a/../b.pdf", want: filepath.Join("/ws", "b.pdf")},
		{name: "./", want: ""},
		{name: "/etc/passwd", wantErr: true},
		{name: "../x", wantErr: true},
		{name: "a/../../x", wantErr: true},
		{name: "..\\x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := entryTarget("/ws", tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsafePath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
