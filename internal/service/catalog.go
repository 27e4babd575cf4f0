package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/avolkova/reelist/internal/cache"
	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/metadata"
	"github.com/avolkova/reelist/internal/model"
	"github.com/avolkova/reelist/internal/repository"
)

const defaultSearchTTL = 10 * time.Minute

// CatalogService exposes catalog search and the explicit media backfill path.
type CatalogService interface {
	// Search queries the metadata provider by title, caching responses.
	Search(ctx context.Context, title string, year *int) ([]model.MediaRecord, error)

	// Refresh re-fetches an already stored media record from the provider and
	// overwrites its canonical fields. The only path that mutates media rows.
	Refresh(ctx context.Context, externalID string) (model.MediaRecord, error)
}

type CatalogServiceImpl struct {
	media     repository.MediaRepository
	provider  metadata.Provider
	cache     cache.Cache
	searchTTL time.Duration
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(
	media repository.MediaRepository,
	provider metadata.Provider,
	c cache.Cache,
) *CatalogServiceImpl {
	return &CatalogServiceImpl{media: media, provider: provider, cache: c, searchTTL: defaultSearchTTL}
}

func searchCacheKey(title string, year *int) string {
	key := "search:title:" + title
	if year != nil {
		key += ":" + strconv.Itoa(*year)
	}
	return key
}

// Search serves repeated queries from the cache to avoid redundant external
// lookups.
func (s *CatalogServiceImpl) Search(
	ctx context.Context, title string, year *int,
) ([]model.MediaRecord, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", errs.ErrValidation)
	}

	key := searchCacheKey(title, year)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var out []model.MediaRecord
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
	}

	out, err := s.provider.SearchByTitle(ctx, title, year)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		s.cache.Set(ctx, key, raw, s.searchTTL)
	}
	return out, nil
}

// Refresh re-fetches the provider record and backfills the stored row.
func (s *CatalogServiceImpl) Refresh(ctx context.Context, externalID string) (model.MediaRecord, error) {
	if externalID == "" {
		return model.MediaRecord{}, fmt.Errorf("%w: empty external id", errs.ErrValidation)
	}
	rec, err := s.provider.FetchByExternalID(ctx, externalID)
	if err != nil {
		return model.MediaRecord{}, err
	}
	rec.ExternalID = externalID
	if err := s.media.Update(ctx, rec); err != nil {
		return model.MediaRecord{}, err
	}
	return rec, nil
}
