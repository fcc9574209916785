package downloads

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/bookdrop/bookdrop/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type ListEventsOptions struct {
	Limit  *int
	Offset *int
	BookID *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) RetrieveBook(ctx context.Context, id int) (*models.Book, error) {
	book := &models.Book{}
	err := svc.db.
		NewSelect().
		Model(book).
		Where("b.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Book")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return book, nil
}

// RecordDownload stores a download event and bumps the book's download
// count in one transaction. It returns the updated book.
func (svc *Service) RecordDownload(ctx context.Context, bookID int, email *string) (*models.Book, error) {
	book := &models.Book{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(book).
			Set("download_count = download_count + 1").
			Where("id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		err = tx.
			NewSelect().
			Model(book).
			Where("b.id = ?", bookID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		event := &models.DownloadEvent{
			CreatedAt: time.Now(),
			BookID:    bookID,
			Email:     email,
		}
		_, err = tx.
			NewInsert().
			Model(event).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

func (svc *Service) ListEventsWithTotal(ctx context.Context, opts ListEventsOptions) ([]*models.DownloadEvent, int, error) {
	events := []*models.DownloadEvent{}

	q := svc.db.
		NewSelect().
		Model(&events).
		Order("de.created_at DESC", "de.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.BookID != nil {
		q = q.Where("de.book_id = ?", *opts.BookID)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return events, total, nil
}
