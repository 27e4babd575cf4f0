package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/metadata"
	"github.com/avolkova/reelist/internal/model"
	"github.com/avolkova/reelist/internal/repository"
)

// AddToWatchlistResult reports the outcome of an add operation.
type AddToWatchlistResult struct {
	AlreadyPresent bool `json:"alreadyPresent"`
}

// RemoveFromWatchlistResult reports the outcome of a remove operation.
type RemoveFromWatchlistResult struct {
	WasPresent bool `json:"wasPresent"`
}

// MarkWatchedResult reports the outcome of a mark-as-watched transition.
type MarkWatchedResult struct {
	PreviouslyInWatchlist bool `json:"previouslyInWatchlist"`
}

// TrackerService drives the per-(user, media) watchlist/watched state machine:
// none -> watchlisted -> watched, with the direct none -> watched shortcut.
// Watched is terminal.
type TrackerService interface {
	// AddToWatchlist puts media on the user's watchlist. Idempotent: a
	// repeated add reports AlreadyPresent instead of erroring.
	AddToWatchlist(ctx context.Context, userID uuid.UUID, externalID string, note *string) (AddToWatchlistResult, error)

	// RemoveFromWatchlist takes media off the watchlist; absence is reported,
	// not an error.
	RemoveFromWatchlist(ctx context.Context, userID uuid.UUID, externalID string) (RemoveFromWatchlistResult, error)

	// MarkWatched records media as watched with a 1-5 rating, clearing any
	// watchlist entry for the pair in the same transaction. Re-rating an
	// already watched item refreshes rating, note, and timestamp.
	MarkWatched(ctx context.Context, userID uuid.UUID, entry model.BatchEntry) (MarkWatchedResult, error)

	// MarkWatchedBatch applies MarkWatched to every entry, in order. With
	// transactional=true the whole batch commits or rolls back as a unit;
	// otherwise each entry runs independently and failures are reported
	// per item.
	MarkWatchedBatch(ctx context.Context, userID uuid.UUID, entries []model.BatchEntry, transactional bool) ([]model.BatchResult, error)

	// Watchlist returns the user's watchlist, newest first.
	Watchlist(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error)

	// WatchedMovies returns the user's watch history, optionally filtered to
	// rating >= minRating (0 disables the filter).
	WatchedMovies(ctx context.Context, userID uuid.UUID, minRating int) ([]model.WatchedItem, error)
}

type TrackerServiceImpl struct {
	repo     repository.TrackerRepository
	media    repository.MediaRepository
	provider metadata.Provider
	now      func() time.Time
}

// NewTrackerService constructs TrackerService.
func NewTrackerService(
	repo repository.TrackerRepository,
	media repository.MediaRepository,
	provider metadata.Provider,
) *TrackerServiceImpl {
	return &TrackerServiceImpl{repo: repo, media: media, provider: provider, now: time.Now}
}

// AddToWatchlist resolves the media record and inserts the watchlist entry.
func (s *TrackerServiceImpl) AddToWatchlist(
	ctx context.Context, userID uuid.UUID, externalID string, note *string,
) (AddToWatchlistResult, error) {
	if userID == uuid.Nil || externalID == "" {
		return AddToWatchlistResult{}, fmt.Errorf("%w: empty user or external id", errs.ErrValidation)
	}
	rec, err := s.resolve(ctx, externalID)
	if err != nil {
		return AddToWatchlistResult{}, err
	}
	already, err := s.repo.AddToWatchlist(ctx, userID, rec, note)
	if err != nil {
		return AddToWatchlistResult{}, err
	}
	return AddToWatchlistResult{AlreadyPresent: already}, nil
}

// RemoveFromWatchlist deletes the entry if present.
func (s *TrackerServiceImpl) RemoveFromWatchlist(
	ctx context.Context, userID uuid.UUID, externalID string,
) (RemoveFromWatchlistResult, error) {
	if userID == uuid.Nil || externalID == "" {
		return RemoveFromWatchlistResult{}, fmt.Errorf("%w: empty user or external id", errs.ErrValidation)
	}
	wasPresent, err := s.repo.RemoveFromWatchlist(ctx, userID, externalID)
	if err != nil {
		return RemoveFromWatchlistResult{}, err
	}
	return RemoveFromWatchlistResult{WasPresent: wasPresent}, nil
}

// MarkWatched validates, resolves, gates on release date, and delegates the
// transactional transition to the repository.
func (s *TrackerServiceImpl) MarkWatched(
	ctx context.Context, userID uuid.UUID, entry model.BatchEntry,
) (MarkWatchedResult, error) {
	if userID == uuid.Nil {
		return MarkWatchedResult{}, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	up, err := s.prepareWatched(ctx, entry)
	if err != nil {
		return MarkWatchedResult{}, err
	}
	fromWatchlist, err := s.repo.MarkWatched(ctx, userID, up)
	if err != nil {
		return MarkWatchedResult{}, err
	}
	return MarkWatchedResult{PreviouslyInWatchlist: fromWatchlist}, nil
}

// MarkWatchedBatch processes entries in the order supplied, either inside one
// shared transaction or as independent per-item transactions.
func (s *TrackerServiceImpl) MarkWatchedBatch(
	ctx context.Context, userID uuid.UUID, entries []model.BatchEntry, transactional bool,
) ([]model.BatchResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty batch", errs.ErrValidation)
	}
	if transactional {
		return s.markWatchedAtomic(ctx, userID, entries)
	}
	return s.markWatchedBestEffort(ctx, userID, entries), nil
}

// markWatchedAtomic fails the whole call on the first invalid or unresolvable
// entry, before any transaction is opened; a repository failure rolls back
// every entry's effects.
func (s *TrackerServiceImpl) markWatchedAtomic(
	ctx context.Context, userID uuid.UUID, entries []model.BatchEntry,
) ([]model.BatchResult, error) {
	ups := make([]model.WatchedUpsert, 0, len(entries))
	for i := range entries {
		up, err := s.prepareWatched(ctx, entries[i])
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, entries[i].ExternalID, err)
		}
		ups = append(ups, up)
	}
	if _, err := s.repo.MarkWatchedAll(ctx, userID, ups); err != nil {
		return nil, err
	}
	results := make([]model.BatchResult, len(entries))
	for i := range entries {
		results[i] = model.BatchResult{ExternalID: entries[i].ExternalID, Success: true}
	}
	return results, nil
}

// markWatchedBestEffort runs each entry independently; per-item failures are
// collected, never propagated.
func (s *TrackerServiceImpl) markWatchedBestEffort(
	ctx context.Context, userID uuid.UUID, entries []model.BatchEntry,
) []model.BatchResult {
	results := make([]model.BatchResult, 0, len(entries))
	for i := range entries {
		res := model.BatchResult{ExternalID: entries[i].ExternalID}
		up, err := s.prepareWatched(ctx, entries[i])
		if err == nil {
			_, err = s.repo.MarkWatched(ctx, userID, up)
		}
		if err != nil {
			res.Message = err.Error()
		} else {
			res.Success = true
		}
		results = append(results, res)
	}
	return results
}

// Watchlist returns the user's watchlist, newest first.
func (s *TrackerServiceImpl) Watchlist(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.repo.Watchlist(ctx, userID)
}

// WatchedMovies returns the user's watch history filtered by minimum rating.
func (s *TrackerServiceImpl) WatchedMovies(
	ctx context.Context, userID uuid.UUID, minRating int,
) ([]model.WatchedItem, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if minRating < 0 || minRating > 5 {
		return nil, fmt.Errorf("%w: min rating out of range", errs.ErrValidation)
	}
	return s.repo.WatchedMovies(ctx, userID, minRating)
}

// prepareWatched validates one entry, resolves its media record, and applies
// the unreleased gate.
func (s *TrackerServiceImpl) prepareWatched(
	ctx context.Context, entry model.BatchEntry,
) (model.WatchedUpsert, error) {
	if entry.ExternalID == "" {
		return model.WatchedUpsert{}, fmt.Errorf("%w: empty external id", errs.ErrValidation)
	}
	if entry.Rating < 1 || entry.Rating > 5 {
		return model.WatchedUpsert{}, fmt.Errorf("%w: rating must be between 1 and 5", errs.ErrValidation)
	}
	rec, err := s.resolve(ctx, entry.ExternalID)
	if err != nil {
		return model.WatchedUpsert{}, err
	}
	if !rec.Released(s.now()) {
		return model.WatchedUpsert{}, fmt.Errorf("%w: %q", errs.ErrUnreleased, rec.Title)
	}
	return model.WatchedUpsert{
		Media:     rec,
		Rating:    entry.Rating,
		Note:      entry.Note,
		WatchedAt: s.now().UTC(),
	}, nil
}

// resolve returns the locally known record for an external id, fetching from
// the metadata provider on first reference. The fetch happens before any
// transaction opens; the row itself is created inside the mutating
// transaction so no operation commits against an unresolved identifier.
func (s *TrackerServiceImpl) resolve(ctx context.Context, externalID string) (model.MediaRecord, error) {
	rec, err := s.media.GetByExternalID(ctx, externalID)
	if err == nil {
		return *rec, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return model.MediaRecord{}, err
	}
	fetched, err := s.provider.FetchByExternalID(ctx, externalID)
	if err != nil {
		return model.MediaRecord{}, err
	}
	fetched.ExternalID = externalID
	return fetched, nil
}
