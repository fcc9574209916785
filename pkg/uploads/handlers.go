package uploads

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/books"
	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/fileutils"
	"github.com/bookdrop/bookdrop/pkg/importer"
	"github.com/bookdrop/bookdrop/pkg/jobs"
	"github.com/bookdrop/bookdrop/pkg/sidecar"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	config      *config.Config
	batch       *importer.BatchImporter
	bookService *books.Service
	jobService  *jobs.Service
}

// uploadBook imports a single book, with an optional sidecar and cover,
// synchronously and returns the new record.
func (h *handler) uploadBook(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := UploadBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	bookFile, ok := params.FormFiles[fieldBook]
	if !ok {
		return errcodes.ValidationError(`"book" is required.`)
	}
	if err := h.checkFile(bookFile, h.config.IsBookExtension); err != nil {
		return err
	}
	sidecarFile := params.FormFiles[fieldSidecar]
	if sidecarFile != nil {
		if err := h.checkFile(sidecarFile, func(ext string) bool { return strings.EqualFold(ext, sidecar.Extension) }); err != nil {
			return err
		}
	}
	coverFile := params.FormFiles[fieldCover]
	if coverFile != nil {
		if err := h.checkFile(coverFile, h.config.IsImageExtension); err != nil {
			return err
		}
	}

	dir, err := os.MkdirTemp(h.config.WorkspaceDir, "bookdrop-upload-*")
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("failed to remove upload workspace", logger.Data{"dir": dir, "error": err.Error()})
		}
	}()

	// The book gets its own directory so sidecar lookup never leaves the
	// upload workspace.
	bookDir := filepath.Join(dir, "book")
	if err := os.Mkdir(bookDir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	bookPath, err := saveUpload(bookFile, bookDir, "")
	if err != nil {
		return err
	}
	var sidecarPath, coverPath string
	if sidecarFile != nil {
		if sidecarPath, err = saveUpload(sidecarFile, dir, "sidecar"); err != nil {
			return err
		}
	}
	if coverFile != nil {
		if coverPath, err = saveUpload(coverFile, dir, "cover"); err != nil {
			return err
		}
	}

	report := h.batch.Run(ctx, []importer.ImportUnit{importer.SingleUnit(bookPath, sidecarPath, coverPath)})
	if len(report.Failures) > 0 {
		return errcodes.ImportFailed(report.Failures[0].Reason)
	}

	book, err := h.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &report.BookIDs[0]})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

// uploadArchive stores the archive and queues an import job for it.
func (h *handler) uploadArchive(c echo.Context) error {
	ctx := c.Request().Context()

	params := UploadArchivePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	archiveFile, ok := params.FormFiles[fieldArchive]
	if !ok {
		return errcodes.ValidationError(`"archive" is required.`)
	}
	if err := h.checkFile(archiveFile, func(ext string) bool { return strings.EqualFold(ext, ".zip") }); err != nil {
		return err
	}

	dir := filepath.Join(h.config.WorkspaceDir, "bookdrop-archives")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	path, err := saveUpload(archiveFile, dir, uuid.NewString())
	if err != nil {
		return err
	}

	job, err := h.jobService.EnqueueArchiveImport(ctx, path, true)
	if err != nil {
		_ = os.Remove(path)
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusAccepted, job))
}

func (h *handler) checkFile(fh *multipart.FileHeader, accept func(ext string) bool) error {
	ext := fileutils.LowerExt(fh.Filename)
	if !accept(ext) {
		return errcodes.UnsupportedFileType(ext)
	}
	if h.config.MaxUploadBytes > 0 && fh.Size > h.config.MaxUploadBytes {
		return errcodes.PayloadTooLarge(h.config.MaxUploadBytes)
	}
	return nil
}

// saveUpload copies the upload into dir. The file keeps its sanitized
// original name unless base is given, in which case base plus the original
// extension is used.
func saveUpload(fh *multipart.FileHeader, dir, base string) (string, error) {
	name := fileutils.SanitizeFilename(filepath.Base(fh.Filename))
	if base != "" {
		name = base + fileutils.LowerExt(fh.Filename)
	}
	if name == "" || name == "." {
		name = "upload" + fileutils.LowerExt(fh.Filename)
	}

	src, err := fh.Open()
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer src.Close()

	dst := filepath.Join(dir, name)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.WithStack(err)
	}
	_, err = io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", errors.WithStack(err)
	}
	return dst, nil
}
