package importer

import (
	"context"
	"path/filepath"

	"github.com/bookdrop/bookdrop/pkg/books"
	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/covers"
	"github.com/bookdrop/bookdrop/pkg/epub"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/mediafile"
	"github.com/bookdrop/bookdrop/pkg/metrics"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/bookdrop/bookdrop/pkg/pdf"
	"github.com/bookdrop/bookdrop/pkg/sidecar"
	"github.com/bookdrop/bookdrop/pkg/storage"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/uptrace/bun"
)

var ErrUnrecognizedFormat = errors.New("unrecognized book format")

// Pipeline imports a single unit: extract, merge, store, persist.
type Pipeline struct {
	normalizer *languages.Normalizer
	pdfReader  *pdf.Reader
	covers     *covers.Resolver
	store      *storage.Store
	books      *books.Service
	defaults   books.Defaults
}

func NewPipeline(cfg *config.Config, db *bun.DB, store *storage.Store, normalizer *languages.Normalizer, pdfReader *pdf.Reader) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		pdfReader:  pdfReader,
		covers:     covers.NewResolver(cfg),
		store:      store,
		books:      books.NewService(db),
		defaults:   books.DefaultsFromConfig(cfg),
	}
}

// ImportUnit extracts the unit's metadata and persists a catalog record for
// it. Unreadable sidecars, unparseable embedded metadata and unusable covers
// only cost the fields they would have provided. The unit fails when the
// book itself can't be identified, stored or persisted; nothing is left
// behind in that case.
func (p *Pipeline) ImportUnit(ctx context.Context, unit ImportUnit) (*models.Book, error) {
	log := logger.FromContext(ctx).Data(logger.Data{"unit": unit.RelPath})

	containerType, err := mediafile.DetectContainerType(unit.BookPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read book file")
	}
	if containerType == "" {
		return nil, ErrUnrecognizedFormat
	}
	if unit.ContainerType != "" && unit.ContainerType != containerType {
		log.Warn("book contents don't match its extension", logger.Data{"declared": unit.ContainerType, "detected": containerType})
	}

	sidecarCandidate := mediafile.Candidate{Source: models.DataSourceOPFSidecar}
	if unit.SidecarPath != "" {
		sidecarCandidate = sidecar.Read(ctx, unit.SidecarPath, p.normalizer)
	}

	var source mediafile.Source
	switch containerType {
	case models.ContainerTypeEPUB:
		source = epub.Source{Path: unit.BookPath, Normalizer: p.normalizer}
	case models.ContainerTypePDF:
		source = pdf.Source{Path: unit.BookPath, Reader: p.pdfReader}
	}
	embedded := source.Extract(ctx)

	if containerType == models.ContainerTypePDF {
		_, inSidecar := sidecarCandidate.Value(mediafile.FieldLanguage)
		_, inEmbedded := embedded.Value(mediafile.FieldLanguage)
		if !inSidecar && !inEmbedded {
			if code, ok := p.pdfReader.DetectLanguage(ctx, unit.BookPath); ok {
				embedded = withLanguage(embedded, code, models.DataSourcePDFText)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	book := books.Merge(sidecarCandidate, embedded, books.TitleFromFilename(unit.OriginalFilename), p.defaults)
	book.ContainerType = containerType
	book.OriginalFilename = unit.OriginalFilename

	storedName, size, err := p.store.SaveBook(unit.BookPath, unit.OriginalFilename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store book file")
	}
	book.StoredFilename = storedName
	book.FileSize = size

	asset := p.covers.Resolve(ctx, covers.Request{
		ExplicitPath:  unit.ExplicitCoverPath,
		AdjacentPath:  unit.CoverPath,
		BookPath:      unit.BookPath,
		ContainerType: containerType,
	})
	if asset != nil {
		coverName, err := p.store.SaveCover(storedName, asset.Data, asset.Ext)
		if err != nil {
			log.Warn("failed to store cover", logger.Data{"error": err.Error()})
		} else {
			book.StoredCoverFilename = pointerutil.String(coverName)
			book.CoverSource = pointerutil.String(asset.Source)
		}
	}

	if err := p.books.CreateBook(ctx, book); err != nil {
		p.removeBlobs(ctx, book)
		return nil, errors.Wrap(err, "failed to save book")
	}

	recordFieldSources(book)
	log.Info("imported book", logger.Data{
		"book_id":        book.ID,
		"title":          book.Title,
		"container_type": containerType,
		"file":           filepath.Base(unit.BookPath),
	})
	return book, nil
}

// Discard removes a book imported by ImportUnit along with its files.
func (p *Pipeline) Discard(ctx context.Context, book *models.Book) error {
	return p.books.DeleteBook(ctx, book.ID, p.store)
}

func (p *Pipeline) removeBlobs(ctx context.Context, book *models.Book) {
	log := logger.FromContext(ctx)
	if err := p.store.RemoveBook(book.StoredFilename); err != nil {
		log.Warn("failed to remove stored book", logger.Data{"file": book.StoredFilename, "error": err.Error()})
	}
	if book.HasCover() {
		if err := p.store.RemoveCover(*book.StoredCoverFilename); err != nil {
			log.Warn("failed to remove stored cover", logger.Data{"file": *book.StoredCoverFilename, "error": err.Error()})
		}
	}
}

func withLanguage(c mediafile.Candidate, code, source string) mediafile.Candidate {
	c.Language = pointerutil.String(code)
	sources := make(map[string]string, len(c.FieldSources)+1)
	for k, v := range c.FieldSources {
		sources[k] = v
	}
	sources[mediafile.FieldLanguage] = source
	c.FieldSources = sources
	return c
}

func recordFieldSources(book *models.Book) {
	metrics.IncFieldSource(mediafile.FieldTitle, book.TitleSource)
	metrics.IncFieldSource(mediafile.FieldAuthor, book.AuthorSource)
	metrics.IncFieldSource(mediafile.FieldDescription, book.DescriptionSource)
	metrics.IncFieldSource(mediafile.FieldLanguage, book.LanguageSource)
	metrics.IncFieldSource("category", book.CategorySource)
}
