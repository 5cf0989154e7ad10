package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"imgapi/internal/model"
	"imgapi/internal/repository"
)

// ImagePostgres is a PostgreSQL implementation of repository.ImageRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ImagePostgres struct {
	db *sql.DB
}

// NewImagePostgres creates a new ImagePostgres repository.
func NewImagePostgres(db *sql.DB) *ImagePostgres {
	return &ImagePostgres{db: db}
}

var _ repository.ImageRepository = (*ImagePostgres)(nil)

const pgForeignKeyViolation = "23503"

// Create inserts a new image row.
func (r *ImagePostgres) Create(ctx context.Context, img *model.Image) error {
	const q = `
		INSERT INTO image (image_id, name, uploaded_at, require_signed_urls, draft, account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q,
		img.ImageID,
		img.Name,
		img.UploadedAt,
		img.RequireSignedURLs,
		img.Draft,
		img.AccountID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return repository.ErrAccountNotFound
		}
		return err
	}
	return nil
}

// Publish flips a draft row to published and sets its name in one conditional
// update. Zero rows affected means no draft with that id exists, which covers
// both unknown ids and already-published images.
func (r *ImagePostgres) Publish(ctx context.Context, imageID, name string) error {
	const q = `
		UPDATE image
		SET draft = FALSE, name = $2
		WHERE image_id = $1 AND draft = TRUE
	`
	res, err := r.db.ExecContext(ctx, q, imageID, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindPublished fetches an image by id, scoped to the account and to
// published records only.
func (r *ImagePostgres) FindPublished(ctx context.Context, imageID, accountID string) (*model.Image, error) {
	const q = `
		SELECT image_id, name, uploaded_at, require_signed_urls, draft, account_id
		FROM image
		WHERE image_id = $1 AND account_id = $2 AND draft = FALSE
	`
	row := r.db.QueryRowContext(ctx, q, imageID, accountID)
	var img model.Image
	if err := row.Scan(
		&img.ImageID,
		&img.Name,
		&img.UploadedAt,
		&img.RequireSignedURLs,
		&img.Draft,
		&img.AccountID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}
