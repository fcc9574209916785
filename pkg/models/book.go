package models

import (
	"context"
	"time"

	"github.com/bookdrop/bookdrop/pkg/languages"
	"github.com/uptrace/bun"
)

const (
	ContainerTypePDF  = "pdf"
	ContainerTypeEPUB = "epub"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID                  int       `bun:",pk,nullzero" json:"id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	Title               string    `json:"title"`
	TitleSource         string    `json:"title_source"`
	Author              string    `json:"author"`
	AuthorSource        string    `json:"author_source"`
	Description         string    `json:"description"`
	DescriptionSource   string    `json:"description_source"`
	Language            string    `json:"language"`
	LanguageSource      string    `json:"language_source"`
	LanguageName        string    `bun:"-" json:"language_name"`
	Category            string    `json:"category"`
	CategorySource      string    `json:"category_source"`
	ContainerType       string    `json:"container_type"`
	OriginalFilename    string    `json:"original_filename"`
	StoredFilename      string    `json:"stored_filename"`
	StoredCoverFilename *string   `json:"stored_cover_filename,omitempty"`
	CoverSource         *string   `json:"cover_source,omitempty"`
	FileSize            int64     `json:"file_size"`
	UploadDate          time.Time `json:"upload_date"`
	DownloadCount       int       `json:"download_count"`
}

var _ bun.AfterScanRowHook = (*Book)(nil)

// AfterScanRow fills in the display name of the stored language code.
func (b *Book) AfterScanRow(_ context.Context) error {
	b.LanguageName = languages.DisplayName(b.Language)
	return nil
}

// HasCover reports whether a cover file was stored for the book.
func (b *Book) HasCover() bool {
	return b.StoredCoverFilename != nil && *b.StoredCoverFilename != ""
}

type DownloadEvent struct {
	bun.BaseModel `bun:"table:download_events,alias:de"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	BookID    int       `json:"book_id"`
	Email     *string   `json:"email,omitempty"`
}
