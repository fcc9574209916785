// Package covers picks the cover image for an import unit.
package covers

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg" // decoders for image.DecodeConfig
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/epub"
	"github.com/bookdrop/bookdrop/pkg/mediafile"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	_ "golang.org/x/image/webp"
)

const defaultMaxCoverBytes = 20 << 20

var ErrNotImage = errors.New("not a supported image")

// Request describes where a unit's cover may come from.
type Request struct {
	// ExplicitPath is a cover uploaded alongside the book.
	ExplicitPath string
	// AdjacentPath is an image found next to the book or sidecar.
	AdjacentPath  string
	BookPath      string
	ContainerType string
}

// Asset is a validated cover image ready to be stored.
type Asset struct {
	Source   string
	MimeType string
	// Ext includes the leading dot.
	Ext    string
	Data   []byte
	Width  int
	Height int
}

type Resolver struct {
	acceptExt func(string) bool
	maxBytes  int64
}

func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{acceptExt: cfg.IsImageExtension, maxBytes: defaultMaxCoverBytes}
}

// Resolve returns the first usable cover in priority order: the explicit
// upload, the adjacent image file, then (for EPUBs) the embedded cover item.
// A candidate that can't be read or isn't a valid image is skipped.
func (r *Resolver) Resolve(ctx context.Context, req Request) *Asset {
	log := logger.FromContext(ctx)

	if req.ExplicitPath != "" {
		asset, err := r.fromFile(req.ExplicitPath, models.CoverSourceExplicitUpload)
		if err == nil {
			return asset
		}
		log.Info("explicit cover rejected", logger.Data{"path": req.ExplicitPath, "error": err.Error()})
	}

	if req.AdjacentPath != "" {
		asset, err := r.fromFile(req.AdjacentPath, models.CoverSourceAdjacentFile)
		if err == nil {
			return asset
		}
		log.Info("adjacent cover rejected", logger.Data{"path": req.AdjacentPath, "error": err.Error()})
	}

	if req.ContainerType == models.ContainerTypeEPUB && req.BookPath != "" {
		candidates, err := epub.ExtractCovers(req.BookPath)
		if err != nil {
			log.Info("embedded cover unreadable", logger.Data{"path": req.BookPath, "error": err.Error()})
			metrics.IncSoftFailure("embedded_cover")
			return nil
		}
		for _, cover := range candidates {
			asset, err := Validate(cover.Data)
			if err != nil {
				log.Info("embedded cover rejected", logger.Data{"path": req.BookPath, "item": cover.Path, "error": err.Error()})
				metrics.IncSoftFailure("embedded_cover")
				continue
			}
			asset.Source = models.CoverSourceEmbeddedItem
			return asset
		}
	}

	return nil
}

func (r *Resolver) fromFile(path, source string) (*Asset, error) {
	if !r.acceptExt(filepath.Ext(path)) {
		return nil, errors.Errorf("extension %q is not an accepted image extension", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, r.maxBytes+1))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, errors.Errorf("cover is larger than %d bytes", r.maxBytes)
	}

	asset, err := Validate(data)
	if err != nil {
		return nil, err
	}
	asset.Source = source
	return asset, nil
}

// Validate sniffs data and decodes its header. Only JPEG, PNG and WebP are
// accepted.
func Validate(data []byte) (*Asset, error) {
	mime := mimetype.Detect(data).String()
	ext := mediafile.ImageExtension(mime)
	if ext == "" {
		return nil, errors.Wrapf(ErrNotImage, "detected %s", mime)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrNotImage, err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.Wrap(ErrNotImage, "empty image")
	}
	return &Asset{MimeType: mime, Ext: ext, Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// IsCoverName reports whether a file is a cover candidate by name: it
// contains "cover" (case-insensitively) and has an accepted image extension.
func IsCoverName(name string, acceptExt func(string) bool) bool {
	return strings.Contains(strings.ToLower(filepath.Base(name)), "cover") && acceptExt(filepath.Ext(name))
}

// FindAdjacent returns the first cover candidate in dir by sorted name, or "".
func FindAdjacent(dir string, acceptExt func(string) bool) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && IsCoverName(e.Name(), acceptExt) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0])
}
