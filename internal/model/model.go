// Package model defines domain entities used by services and repositories.
package model

import "time"

// MediaRecord is the canonical local copy of an external catalog item.
// Created lazily on first reference; immutable afterwards except through
// the explicit backfill path.
type MediaRecord struct {
	ID          int64      `json:"-"`
	ExternalID  string     `json:"externalId"`
	Title       string     `json:"title"`
	Year        *int       `json:"year,omitempty"`
	ReleaseDate *time.Time `json:"releaseDate,omitempty"`
	Synopsis    string     `json:"synopsis,omitempty"`
	PosterURL   string     `json:"posterUrl,omitempty"`
	Rating      float64    `json:"rating,omitempty"` // aggregate external rating, 0-10 scale
	CreatedAt   time.Time  `json:"-"`
}

// Released reports whether the media is released as of now.
// Media without a known release date is treated as released.
func (m MediaRecord) Released(now time.Time) bool {
	return m.ReleaseDate == nil || !m.ReleaseDate.After(now)
}

// WatchlistItem is a user's watchlist entry joined with its media record.
type WatchlistItem struct {
	Media   MediaRecord `json:"media"`
	Note    *string     `json:"note,omitempty"`
	AddedAt time.Time   `json:"addedAt"`
}

// WatchedItem is a user's watch-history entry joined with its media record.
type WatchedItem struct {
	Media     MediaRecord `json:"media"`
	Rating    int         `json:"rating"` // 1..5
	Note      *string     `json:"note,omitempty"`
	WatchedAt time.Time   `json:"watchedAt"`
}

// WatchedUpsert is a resolved mark-as-watched intent handed to the repository.
type WatchedUpsert struct {
	Media     MediaRecord
	Rating    int
	Note      *string
	WatchedAt time.Time
}

// BatchEntry is a single unresolved item of a mark-as-watched batch.
type BatchEntry struct {
	ExternalID string  `json:"externalId"`
	Rating     int     `json:"rating"`
	Note       *string `json:"note,omitempty"`
}

// BatchResult reports the outcome for one batch entry.
type BatchResult struct {
	ExternalID string `json:"externalId"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
}

// PreferenceEntry is one stored (key, value) preference row.
// Value is a scalar, an arbitrary structured value, or a list.
type PreferenceEntry struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PreferenceUpdate is a single incoming (key, value) pair of a set operation.
type PreferenceUpdate struct {
	Key   string
	Value any
}

// Person is the enriched display form of a person-shaped preference element.
// ImageURL is recomputed on every read and never persisted.
type Person struct {
	Name     string  `json:"name"`
	ImageURL *string `json:"imageUrl,omitempty"`
}
