package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID             *int
	StoredFilename *string
}

type ListBooksOptions struct {
	Limit    *int
	Offset   *int
	Search   *string
	Language *string
	Category *string

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

// BlobRemover deletes stored files. *storage.Store implements it.
type BlobRemover interface {
	RemoveBook(name string) error
	RemoveCover(name string) error
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateBook persists a catalog record in a single insert.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt
	if book.UploadDate.IsZero() {
		book.UploadDate = book.CreatedAt
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.StoredFilename != nil {
		q = q.Where("b.stored_filename = ?", *opts.StoredFilename)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Order("b.upload_date DESC", "b.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Search != nil && *opts.Search != "" {
		pattern := "%" + *opts.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("b.title LIKE ?", pattern).
				WhereOr("b.author LIKE ?", pattern)
		})
	}
	if opts.Language != nil {
		q = q.Where("b.language = ?", *opts.Language)
	}
	if opts.Category != nil {
		q = q.Where("b.category = ?", *opts.Category)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	book.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("Book")
	}

	return nil
}

// DeleteBook removes the record and its download events in one transaction
// and then deletes its stored files. Deleting a missing book returns
// NotFound.
func (svc *Service) DeleteBook(ctx context.Context, id int, blobs BlobRemover) error {
	book := &models.Book{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.
			NewSelect().
			Model(book).
			Where("b.id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.DownloadEvent)(nil)).
			Where("book_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model(book).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return err
	}

	if blobs == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	if err := blobs.RemoveBook(book.StoredFilename); err != nil {
		log.Warn("failed to remove stored book", logger.Data{"book_id": id, "file": book.StoredFilename, "error": err.Error()})
	}
	if book.HasCover() {
		if err := blobs.RemoveCover(*book.StoredCoverFilename); err != nil {
			log.Warn("failed to remove stored cover", logger.Data{"book_id": id, "file": *book.StoredCoverFilename, "error": err.Error()})
		}
	}

	return nil
}

// Categories returns the distinct categories in use, sorted.
func (svc *Service) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := svc.db.
		NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("DISTINCT b.category").
		Order("b.category ASC").
		Scan(ctx, &categories)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return categories, nil
}
