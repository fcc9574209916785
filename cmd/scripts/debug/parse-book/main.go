package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bookdrop/bookdrop/pkg/books"
	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/bookdrop/bookdrop/pkg/covers"
	"github.com/bookdrop/bookdrop/pkg/epub"
	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/bookdrop/bookdrop/pkg/mediafile"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/bookdrop/bookdrop/pkg/pdf"
	"github.com/bookdrop/bookdrop/pkg/sidecar"
	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
)

func main() {
	log := logger.New()
	ctx := log.WithContext(context.Background())

	var opts struct {
		Sidecar     string `short:"s" long:"sidecar" description:"An OPF sidecar to use instead of looking one up next to the book"`
		CoverOutput string `short:"o" long:"cover-output" description:"A path to output the resolved cover image"`
		PDFText     bool   `long:"pdf-text" description:"Detect the language of PDFs from their first page"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-book [--sidecar path.opf] <path/to/book>")
		os.Exit(1)
	}
	bookPath := args[0]

	cfg := config.NewDefault()
	cfg.PDFTextExtraction = opts.PDFText
	normalizer := languages.NewNormalizer(cfg.SupportedLanguages)

	containerType, err := mediafile.DetectContainerType(bookPath)
	if err != nil {
		log.Err(err).Fatal("container detection error")
	}
	if containerType == "" {
		log.Fatal("not a pdf or epub", logger.Data{"path": bookPath})
	}
	fmt.Printf("Container: %s\n", containerType)

	sidecarPath := opts.Sidecar
	if sidecarPath == "" {
		sidecarPath = sidecar.Find(bookPath)
	}
	sidecarCandidate := mediafile.Candidate{Source: models.DataSourceOPFSidecar}
	if sidecarPath != "" {
		fmt.Printf("Sidecar: %s\n", sidecarPath)
		sidecarCandidate = sidecar.Read(ctx, sidecarPath, normalizer)
	}

	var embedded mediafile.Candidate
	switch containerType {
	case models.ContainerTypeEPUB:
		embedded = epub.Source{Path: bookPath, Normalizer: normalizer}.Extract(ctx)
	case models.ContainerTypePDF:
		reader := pdf.NewReader(cfg, normalizer)
		defer reader.Close()
		embedded = pdf.Source{Path: bookPath, Reader: reader}.Extract(ctx)
		if code, ok := reader.DetectLanguage(ctx, bookPath); ok {
			fmt.Printf("Detected language: %s\n", code)
		}
	}

	fmt.Printf("Sidecar candidate: %s\n", sidecarCandidate)
	fmt.Printf("Embedded candidate: %s\n", embedded)

	book := books.Merge(sidecarCandidate, embedded, books.TitleFromFilename(bookPath), books.DefaultsFromConfig(cfg))
	fmt.Printf("Title: %s (%s)\n", book.Title, book.TitleSource)
	fmt.Printf("Author: %s (%s)\n", book.Author, book.AuthorSource)
	fmt.Printf("Description: %q (%s)\n", book.Description, book.DescriptionSource)
	fmt.Printf("Language: %s (%s)\n", book.Language, book.LanguageSource)
	fmt.Printf("Category: %s (%s)\n", book.Category, book.CategorySource)

	asset := covers.NewResolver(cfg).Resolve(ctx, covers.Request{
		AdjacentPath:  covers.FindAdjacent(filepath.Dir(bookPath), cfg.IsImageExtension),
		BookPath:      bookPath,
		ContainerType: containerType,
	})
	if asset == nil {
		fmt.Println("Cover: none")
		return
	}
	fmt.Printf("Cover: %s %dx%d (%s)\n", asset.MimeType, asset.Width, asset.Height, asset.Source)
	if opts.CoverOutput != "" {
		if err := os.WriteFile(opts.CoverOutput, asset.Data, 0o644); err != nil {
			log.Err(err).Fatal("cover write error")
		}
	}
}
