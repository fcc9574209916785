package importer

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScanOptions() ScanOptions {
	cfg := config.NewForTest()
	return ScanOptions{IsBookExtension: cfg.IsBookExtension, IsImageExtension: cfg.IsImageExtension}
}

func file(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func TestScan_SingleBookDirectories(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a/book.pdf":            file("pdf"),
		"a/metadata.opf":        file("opf"),
		"a/cover.jpg":           file("jpg"),
		"b/Dune.epub":           file("epub"),
		"b/notes.txt":           file("txt"),
		"b/photo.jpg":           file("not a cover by name"),
		"loose.pdf":             file("pdf"),
		"__MACOSX/a/._book.pdf": file("fork"),
		".hidden/book.pdf":      file("pdf"),
	}

	units, err := Scan(fsys, testScanOptions())
	require.NoError(t, err)
	require.Len(t, units, 3)

	assert.Equal(t, "a/book.pdf", units[0].RelPath)
	assert.Equal(t, "book.pdf", units[0].OriginalFilename)
	assert.Equal(t, "a/metadata.opf", units[0].SidecarPath)
	assert.Equal(t, "a/cover.jpg", units[0].CoverPath)
	assert.Equal(t, models.ContainerTypePDF, units[0].ContainerType)
	assert.Empty(t, units[0].Anomalies)

	assert.Equal(t, "b/Dune.epub", units[1].RelPath)
	assert.Equal(t, models.ContainerTypeEPUB, units[1].ContainerType)
	assert.Empty(t, units[1].SidecarPath)
	assert.Empty(t, units[1].CoverPath)

	assert.Equal(t, "loose.pdf", units[2].RelPath)
}

func TestScan_MultiBookDirectory(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"shelf/alpha.pdf":       file("pdf"),
		"shelf/alpha.opf":       file("opf"),
		"shelf/alpha-cover.png": file("png"),
		"shelf/beta.epub":       file("epub"),
		"shelf/beta2.pdf":       file("pdf"),
		"shelf/beta2_cover.jpg": file("jpg"),
		"shelf/metadata.opf":    file("opf"),
	}

	units, err := Scan(fsys, testScanOptions())
	require.NoError(t, err)
	require.Len(t, units, 3)

	alpha, beta, beta2 := units[0], units[1], units[2]

	assert.Equal(t, "shelf/alpha.opf", alpha.SidecarPath)
	assert.Equal(t, "shelf/alpha-cover.png", alpha.CoverPath)
	assert.Empty(t, alpha.Anomalies)

	// No files of its own, so it borrows the unclaimed sidecar and has no
	// unclaimed cover to borrow.
	assert.Equal(t, "shelf/beta.epub", beta.RelPath)
	assert.Equal(t, "shelf/metadata.opf", beta.SidecarPath)
	assert.Empty(t, beta.CoverPath)
	assert.Equal(t, []string{AnomalySharedSidecar}, beta.Anomalies)

	assert.Equal(t, "shelf/beta2_cover.jpg", beta2.CoverPath)
	assert.Equal(t, "shelf/metadata.opf", beta2.SidecarPath)
	assert.Equal(t, []string{AnomalySharedSidecar}, beta2.Anomalies)
}

func TestScan_SharedCover(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"x/one.pdf":   file("pdf"),
		"x/two.pdf":   file("pdf"),
		"x/cover.jpg": file("jpg"),
	}

	units, err := Scan(fsys, testScanOptions())
	require.NoError(t, err)
	require.Len(t, units, 2)
	for _, u := range units {
		assert.Equal(t, "x/cover.jpg", u.CoverPath)
		assert.Equal(t, []string{AnomalySharedCover}, u.Anomalies)
	}
}

func TestScan_IsDeterministic(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"z/b.pdf":      file("pdf"),
		"z/a.epub":     file("epub"),
		"m/book.pdf":   file("pdf"),
		"m/cover.png":  file("png"),
		"a/deep/c.pdf": file("pdf"),
	}

	first, err := Scan(fsys, testScanOptions())
	require.NoError(t, err)
	second, err := Scan(fsys, testScanOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	paths := make([]string, len(first))
	for i, u := range first {
		paths[i] = u.RelPath
	}
	assert.Equal(t, []string{"a/deep/c.pdf", "m/book.pdf", "z/a.epub", "z/b.pdf"}, paths)
}

func TestScan_Root(t *testing.T) {
	t.Parallel()

	opts := testScanOptions()
	opts.Root = "/work"
	units, err := Scan(fstest.MapFS{"d/book.pdf": file("pdf"), "d/book.opf": file("opf")}, opts)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "/work/d/book.pdf", units[0].BookPath)
	assert.Equal(t, "/work/d/book.opf", units[0].SidecarPath)
	assert.Equal(t, "d/book.pdf", units[0].RelPath)
}

func TestScan_Empty(t *testing.T) {
	t.Parallel()

	units, err := Scan(fstest.MapFS{"readme.txt": file("hi")}, testScanOptions())
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestSingleUnit(t *testing.T) {
	t.Parallel()

	u := SingleUnit("/tmp/up/Dune.epub", "/tmp/up/meta.opf", "/tmp/up/front.jpg")
	assert.Equal(t, "Dune.epub", u.OriginalFilename)
	assert.Equal(t, models.ContainerTypeEPUB, u.ContainerType)
	assert.Equal(t, "/tmp/up/meta.opf", u.SidecarPath)
	assert.Equal(t, "/tmp/up/front.jpg", u.ExplicitCoverPath)
	assert.Empty(t, u.CoverPath)
}

func TestSingleUnit_FindsAdjacentSidecar(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	bookPath := filepath.Join(dir, "Dune.epub")
	require.NoError(t, os.WriteFile(bookPath, []byte("x"), 0o644))

	u := SingleUnit(bookPath, "", "")
	assert.Empty(t, u.SidecarPath)

	meta := filepath.Join(dir, "metadata.opf")
	require.NoError(t, os.WriteFile(meta, []byte("<package/>"), 0o644))
	u = SingleUnit(bookPath, "", "")
	assert.Equal(t, meta, u.SidecarPath)

	own := filepath.Join(dir, "Dune.opf")
	require.NoError(t, os.WriteFile(own, []byte("<package/>"), 0o644))
	u = SingleUnit(bookPath, "", "")
	assert.Equal(t, own, u.SidecarPath)
}
