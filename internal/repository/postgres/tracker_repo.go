package postgres

import (
	"context"

	"github.com/avolkova/reelist/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TrackerRepo implements TrackerRepository using PostgreSQL. Every mutating
// method is a single transaction, so the watchlist/watched mutual exclusion
// is never observable in a violated state.
type TrackerRepo struct {
	db    *DB
	media *MediaRepo
}

// NewTrackerRepo constructs a tracker repository.
func NewTrackerRepo(db *DB, media *MediaRepo) *TrackerRepo {
	return &TrackerRepo{db: db, media: media}
}

// AddToWatchlist inserts a watchlist entry, creating the media row on first
// reference. A second add for the same pair reports already=true.
func (r *TrackerRepo) AddToWatchlist(
	ctx context.Context, userID uuid.UUID, rec model.MediaRecord, note *string,
) (already bool, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	mediaID, err := r.media.Ensure(ctx, tx, rec)
	if err != nil {
		return false, err
	}

	const ins = `
INSERT INTO watchlist_entries (user_id, media_id, note)
VALUES ($1,$2,$3)
ON CONFLICT (user_id, media_id) DO NOTHING`
	tag, err := tx.Exec(ctx, ins, userID, mediaID, note)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 0, nil
}

// RemoveFromWatchlist deletes the entry and reports whether one existed.
// Absence is not an error.
func (r *TrackerRepo) RemoveFromWatchlist(
	ctx context.Context, userID uuid.UUID, externalID string,
) (bool, error) {
	const del = `
DELETE FROM watchlist_entries USING media
WHERE watchlist_entries.media_id=media.id
  AND watchlist_entries.user_id=$1
  AND media.external_id=$2`
	tag, err := r.db.Pool.Exec(ctx, del, userID, externalID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkWatched upserts the watched entry and clears any watchlist entry for
// the same pair in one transaction.
func (r *TrackerRepo) MarkWatched(
	ctx context.Context, userID uuid.UUID, up model.WatchedUpsert,
) (fromWatchlist bool, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	return r.markWatchedTx(ctx, tx, userID, up)
}

// MarkWatchedAll runs every entry through the mark-as-watched transition in
// one shared transaction. The first failing entry rolls back the whole batch.
func (r *TrackerRepo) MarkWatchedAll(
	ctx context.Context, userID uuid.UUID, ups []model.WatchedUpsert,
) (results []bool, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	results = make([]bool, 0, len(ups))
	for i := range ups {
		var fromWatchlist bool
		if fromWatchlist, err = r.markWatchedTx(ctx, tx, userID, ups[i]); err != nil {
			return nil, err
		}
		results = append(results, fromWatchlist)
	}
	return results, nil
}

// markWatchedTx performs the none/watchlisted -> watched transition on the
// caller's transaction: ensure media, upsert watched (idempotent re-rating),
// delete the watchlist entry for the pair.
func (r *TrackerRepo) markWatchedTx(
	ctx context.Context, tx pgx.Tx, userID uuid.UUID, up model.WatchedUpsert,
) (bool, error) {
	mediaID, err := r.media.Ensure(ctx, tx, up.Media)
	if err != nil {
		return false, err
	}

	const upsert = `
INSERT INTO watched_entries (user_id, media_id, rating, note, watched_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, media_id)
DO UPDATE SET rating=EXCLUDED.rating, note=EXCLUDED.note, watched_at=EXCLUDED.watched_at`
	if _, err = tx.Exec(ctx, upsert, userID, mediaID, up.Rating, up.Note, up.WatchedAt); err != nil {
		return false, err
	}

	const clear = `DELETE FROM watchlist_entries WHERE user_id=$1 AND media_id=$2`
	tag, err := tx.Exec(ctx, clear, userID, mediaID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Watchlist returns the user's watchlist joined with media, newest first.
func (r *TrackerRepo) Watchlist(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error) {
	const q = `
SELECT m.id, m.external_id, m.title, m.year, m.release_date, m.synopsis, m.poster_url, m.rating, m.created_at,
       w.note, w.added_at
FROM watchlist_entries w
JOIN media m ON m.id = w.media_id
WHERE w.user_id=$1
ORDER BY w.added_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WatchlistItem
	for rows.Next() {
		var it model.WatchlistItem
		if err = rows.Scan(&it.Media.ID, &it.Media.ExternalID, &it.Media.Title, &it.Media.Year,
			&it.Media.ReleaseDate, &it.Media.Synopsis, &it.Media.PosterURL, &it.Media.Rating,
			&it.Media.CreatedAt, &it.Note, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// WatchedMovies returns the user's watch history joined with media, newest
// first. minRating=0 disables the rating filter.
func (r *TrackerRepo) WatchedMovies(
	ctx context.Context, userID uuid.UUID, minRating int,
) ([]model.WatchedItem, error) {
	const q = `
SELECT m.id, m.external_id, m.title, m.year, m.release_date, m.synopsis, m.poster_url, m.rating, m.created_at,
       h.rating, h.note, h.watched_at
FROM watched_entries h
JOIN media m ON m.id = h.media_id
WHERE h.user_id=$1 AND h.rating>=$2
ORDER BY h.watched_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID, minRating)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WatchedItem
	for rows.Next() {
		var it model.WatchedItem
		if err = rows.Scan(&it.Media.ID, &it.Media.ExternalID, &it.Media.Title, &it.Media.Year,
			&it.Media.ReleaseDate, &it.Media.Synopsis, &it.Media.PosterURL, &it.Media.Rating,
			&it.Media.CreatedAt, &it.Rating, &it.Note, &it.WatchedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
