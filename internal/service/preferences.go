package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sourcegraph/conc/pool"

	"github.com/avolkova/reelist/internal/cache"
	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/metadata"
	"github.com/avolkova/reelist/internal/model"
	"github.com/avolkova/reelist/internal/prefs"
	"github.com/avolkova/reelist/internal/repository"
)

const (
	defaultPrefsTTL  = 2 * time.Minute
	defaultPersonTTL = time.Hour
	lookupParallel   = 4
)

// RemoveItemResult reports whether the whole key was deleted because the list
// emptied.
type RemoveItemResult struct {
	Deleted bool `json:"deleted"`
}

// PreferenceService manages free-form per-user preferences with a cache-aside
// read path. Person-shaped lists are enriched with display images on read;
// enrichment is recomputed every time and never persisted.
type PreferenceService interface {
	// Set applies every (key, value) pair in one transaction and invalidates
	// the user's cache entry after commit.
	Set(ctx context.Context, userID uuid.UUID, updates []model.PreferenceUpdate) error

	// Get returns all preferences, most recently updated first, enriched and
	// cached with a short TTL.
	Get(ctx context.Context, userID uuid.UUID) ([]model.PreferenceEntry, error)

	// RemoveItem removes one element from a list-valued key, deleting the key
	// outright when its list empties.
	RemoveItem(ctx context.Context, userID uuid.UUID, key, item string) (RemoveItemResult, error)
}

type PreferenceServiceImpl struct {
	repo      repository.PreferenceRepository
	cache     cache.Cache
	people    metadata.PersonLookup
	prefsTTL  time.Duration
	personTTL time.Duration
}

// NewPreferenceService constructs PreferenceService.
func NewPreferenceService(
	repo repository.PreferenceRepository,
	c cache.Cache,
	people metadata.PersonLookup,
) *PreferenceServiceImpl {
	return &PreferenceServiceImpl{
		repo:      repo,
		cache:     c,
		people:    people,
		prefsTTL:  defaultPrefsTTL,
		personTTL: defaultPersonTTL,
	}
}

func prefsCacheKey(userID uuid.UUID) string { return "prefs:user:" + userID.String() }
func personCacheKey(name string) string     { return "person:" + name }

// Set validates and persists the updates, then invalidates the user's cache
// entry. Invalidation happens strictly after commit so a concurrent reader
// cannot repopulate the cache with pre-commit data.
func (s *PreferenceServiceImpl) Set(
	ctx context.Context, userID uuid.UUID, updates []model.PreferenceUpdate,
) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if len(updates) == 0 {
		return fmt.Errorf("%w: no preferences supplied", errs.ErrValidation)
	}
	for i := range updates {
		if updates[i].Key == "" {
			return fmt.Errorf("%w: empty preference key", errs.ErrValidation)
		}
	}
	if err := s.repo.Set(ctx, userID, updates); err != nil {
		return err
	}
	s.cache.Delete(ctx, prefsCacheKey(userID))
	return nil
}

// RemoveItem filters one element out of a list-valued key and invalidates the
// user's cache entry after commit, whether the key shrank or disappeared.
func (s *PreferenceServiceImpl) RemoveItem(
	ctx context.Context, userID uuid.UUID, key, item string,
) (RemoveItemResult, error) {
	if userID == uuid.Nil || key == "" || item == "" {
		return RemoveItemResult{}, fmt.Errorf("%w: empty user, key, or item", errs.ErrValidation)
	}
	deleted, err := s.repo.RemoveItem(ctx, userID, key, item)
	if err != nil {
		return RemoveItemResult{}, err
	}
	s.cache.Delete(ctx, prefsCacheKey(userID))
	return RemoveItemResult{Deleted: deleted}, nil
}

// Get serves from the cache when possible; on a miss it reads the store,
// enriches person-shaped lists, and repopulates the cache.
func (s *PreferenceServiceImpl) Get(
	ctx context.Context, userID uuid.UUID,
) ([]model.PreferenceEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}

	key := prefsCacheKey(userID)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var entries []model.PreferenceEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
		// Undecodable cache payloads fall through to the store.
		s.cache.Delete(ctx, key)
	}

	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if prefs.IsPersonKey(entries[i].Key) {
			if list, ok := entries[i].Value.([]any); ok {
				entries[i].Value = s.enrichPeople(ctx, list)
			}
		}
	}

	if raw, err := json.Marshal(entries); err == nil {
		s.cache.Set(ctx, key, raw, s.prefsTTL)
	}
	return entries, nil
}

// enrichPeople attaches display images to person names with a bounded degree
// of parallelism. A failed lookup degrades that one name to no image.
func (s *PreferenceServiceImpl) enrichPeople(ctx context.Context, list []any) []model.Person {
	people := make([]model.Person, len(list))
	p := pool.New().WithMaxGoroutines(lookupParallel)
	for i := range list {
		name := prefs.CanonicalName(list[i])
		p.Go(func() {
			people[i] = s.lookupPerson(ctx, name)
		})
	}
	p.Wait()
	return people
}

// lookupPerson resolves one name through the per-name cache and the external
// person-lookup service.
func (s *PreferenceServiceImpl) lookupPerson(ctx context.Context, name string) model.Person {
	key := personCacheKey(name)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var p model.Person
		if err := json.Unmarshal(raw, &p); err == nil {
			return p
		}
	}

	p, err := s.people.SearchByName(ctx, name)
	if err != nil {
		return model.Person{Name: name}
	}
	if raw, err := json.Marshal(p); err == nil {
		s.cache.Set(ctx, key, raw, s.personTTL)
	}
	return p
}
