package repository

import (
	"context"

	"github.com/avolkova/reelist/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TrackerRepository persists per-user watchlist and watch-history state.
// For any (user, media) pair at most one of the two entries exists; the
// implementation enforces the transition inside a single transaction.
type TrackerRepository interface {
	// AddToWatchlist inserts a watchlist entry, creating the media row if
	// needed. Reports already=true when the entry was present before the call.
	AddToWatchlist(ctx context.Context, userID uuid.UUID, rec model.MediaRecord, note *string) (already bool, err error)

	// RemoveFromWatchlist deletes the entry and reports whether one existed.
	RemoveFromWatchlist(ctx context.Context, userID uuid.UUID, externalID string) (wasPresent bool, err error)

	// MarkWatched upserts a watched entry and removes any watchlist entry for
	// the same pair in one transaction. Reports whether the pair was on the
	// watchlist before the call.
	MarkWatched(ctx context.Context, userID uuid.UUID, up model.WatchedUpsert) (fromWatchlist bool, err error)

	// MarkWatchedAll applies MarkWatched logic to every entry inside one
	// shared transaction; any failure rolls back the whole batch.
	MarkWatchedAll(ctx context.Context, userID uuid.UUID, ups []model.WatchedUpsert) ([]bool, error)

	// Watchlist returns the user's watchlist joined with media, newest first.
	Watchlist(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error)

	// WatchedMovies returns the user's watch history joined with media,
	// newest first, filtered to rating >= minRating when minRating > 0.
	WatchedMovies(ctx context.Context, userID uuid.UUID, minRating int) ([]model.WatchedItem, error)
}
