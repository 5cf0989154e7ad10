package postgres

import (
	"context"
	"database/sql"
	"errors"

	"imgapi/internal/model"
	"imgapi/internal/repository"
)

// VideoPostgres is a PostgreSQL implementation of repository.VideoRepository.
type VideoPostgres struct {
	db *sql.DB
}

// NewVideoPostgres creates a new VideoPostgres repository.
func NewVideoPostgres(db *sql.DB) *VideoPostgres {
	return &VideoPostgres{db: db}
}

var _ repository.VideoRepository = (*VideoPostgres)(nil)

// FindByID fetches a video record by its id.
func (r *VideoPostgres) FindByID(ctx context.Context, videoID string) (*model.Video, error) {
	const q = `SELECT video_id, name FROM video WHERE video_id = $1`
	row := r.db.QueryRowContext(ctx, q, videoID)
	var v model.Video
	if err := row.Scan(&v.VideoID, &v.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}
