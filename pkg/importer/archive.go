package importer

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnsafePath      = errors.New("archive entry escapes the workspace")
	ErrArchiveTooLarge = errors.New("archive expands beyond the size limit")
)

// ExtractArchive unpacks the zip at zipPath into workspace. Entries that
// would land outside workspace abort the extraction, as does exceeding
// maxBytes of uncompressed content (zero disables the limit). Symlinks are
// skipped.
func ExtractArchive(ctx context.Context, zipPath, workspace string, maxBytes int64) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return errors.Wrap(err, "failed to open archive")
	}
	defer zr.Close()

	var written int64
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}

		target, err := entryTarget(workspace, f.Name)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.WithStack(err)
			}
			continue
		case !mode.IsRegular():
			continue
		}

		remaining := int64(-1)
		if maxBytes > 0 {
			remaining = maxBytes - written
		}
		n, err := extractFile(f, target, remaining)
		written += n
		if err != nil {
			return err
		}
	}

	return nil
}

// entryTarget maps an entry name onto the workspace. An empty result means
// the entry names the workspace root itself.
func entryTarget(workspace, name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if path.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", errors.Wrapf(ErrUnsafePath, "entry %q", name)
	}
	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.Wrapf(ErrUnsafePath, "entry %q", name)
	}
	return filepath.Join(workspace, filepath.FromSlash(cleaned)), nil
}

// extractFile writes one entry. remaining < 0 means unlimited.
func extractFile(f *zip.File, target string, remaining int64) (int64, error) {
	if remaining >= 0 && f.UncompressedSize64 > uint64(remaining) {
		return 0, errors.Wrapf(ErrArchiveTooLarge, "entry %q", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, errors.WithStack(err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open entry %q", f.Name)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	// The declared size can lie, so the copy itself is bounded too.
	var r io.Reader = rc
	if remaining >= 0 {
		r = io.LimitReader(rc, remaining+1)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, errors.Wrapf(err, "failed to extract entry %q", f.Name)
	}
	if remaining >= 0 && n > remaining {
		return n, errors.Wrapf(ErrArchiveTooLarge, "entry %q", f.Name)
	}
	return n, nil
}
