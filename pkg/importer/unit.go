// Package importer turns book files, and archives full of them, into catalog
// records.
package importer

import (
	"path/filepath"

	"github.com/bookdrop/bookdrop/pkg/mediafile"
	"github.com/bookdrop/bookdrop/pkg/sidecar"
)

const (
	// AnomalySharedSidecar marks a unit that borrowed the directory's sidecar
	// because it sits next to other books and has no sidecar of its own.
	AnomalySharedSidecar = "shared_sidecar"
	// AnomalySharedCover is the cover equivalent of AnomalySharedSidecar.
	AnomalySharedCover = "shared_cover"
)

// ImportUnit is one book plus the sidecar and cover that belong to it.
type ImportUnit struct {
	// BookPath is where the book file can be read from.
	BookPath string
	// RelPath identifies the unit in reports, relative to the scan root.
	RelPath          string
	OriginalFilename string
	// ContainerType is the format declared by the book's extension. The
	// pipeline confirms it by sniffing the file contents before extraction.
	ContainerType string
	SidecarPath   string
	// CoverPath is an image found next to the book.
	CoverPath string
	// ExplicitCoverPath is a cover uploaded together with the book.
	ExplicitCoverPath string
	Anomalies         []string
}

// SingleUnit builds the unit for a directly uploaded book with optional
// attached sidecar and cover files. Without an attached sidecar, one next to
// the book is used if it exists.
func SingleUnit(bookPath, sidecarPath, coverPath string) ImportUnit {
	if sidecarPath == "" {
		sidecarPath = sidecar.Find(bookPath)
	}
	return ImportUnit{
		BookPath:          bookPath,
		RelPath:           filepath.Base(bookPath),
		OriginalFilename:  filepath.Base(bookPath),
		ContainerType:     mediafile.ContainerTypeFromExtension(bookPath),
		SidecarPath:       sidecarPath,
		ExplicitCoverPath: coverPath,
	}
}
