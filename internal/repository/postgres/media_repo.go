package postgres

import (
	"context"
	"errors"

	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/model"
	"github.com/jackc/pgx/v5"
)

// MediaRepo implements MediaRepository using PostgreSQL.
type MediaRepo struct{ db *DB }

// NewMediaRepo constructs a media repository.
func NewMediaRepo(db *DB) *MediaRepo { return &MediaRepo{db: db} }

const mediaColumns = `id, external_id, title, year, release_date, synopsis, poster_url, rating, created_at`

// GetByExternalID selects the canonical record for an external catalog id.
func (r *MediaRepo) GetByExternalID(ctx context.Context, externalID string) (*model.MediaRecord, error) {
	const q = `
SELECT ` + mediaColumns + `
FROM media WHERE external_id=$1`
	row := r.db.Pool.QueryRow(ctx, q, externalID)
	var m model.MediaRecord
	if err := row.Scan(&m.ID, &m.ExternalID, &m.Title, &m.Year, &m.ReleaseDate,
		&m.Synopsis, &m.PosterURL, &m.Rating, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Ensure inserts the record if its external id is unseen and returns the row
// id either way. Concurrent first references converge on one row: the insert
// is conflict-do-nothing and the id is re-read unconditionally, so the losing
// writer picks up the winner's row instead of failing on the unique constraint.
func (r *MediaRepo) Ensure(ctx context.Context, q Querier, rec model.MediaRecord) (int64, error) {
	const ins = `
INSERT INTO media (external_id, title, year, release_date, synopsis, poster_url, rating)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (external_id) DO NOTHING`
	if _, err := q.Exec(ctx, ins, rec.ExternalID, rec.Title, rec.Year, rec.ReleaseDate,
		rec.Synopsis, rec.PosterURL, rec.Rating); err != nil {
		return 0, err
	}

	const sel = `SELECT id FROM media WHERE external_id=$1`
	var id int64
	if err := q.QueryRow(ctx, sel, rec.ExternalID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Update refreshes the canonical fields of an existing record. This is the
// explicit backfill path; normal operations never touch a media row again
// after first insert.
func (r *MediaRepo) Update(ctx context.Context, rec model.MediaRecord) error {
	const q = `
UPDATE media
SET title=$2, year=$3, release_date=$4, synopsis=$5, poster_url=$6, rating=$7
WHERE external_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, rec.ExternalID, rec.Title, rec.Year, rec.ReleaseDate,
		rec.Synopsis, rec.PosterURL, rec.Rating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
