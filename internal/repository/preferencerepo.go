package repository

import (
	"context"

	"github.com/avolkova/reelist/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PreferenceRepository persists per-user free-form preferences.
type PreferenceRepository interface {
	// Set applies every update in one transaction. List-valued keys are
	// merged into the stored list under a row lock; scalar keys are
	// overwritten last-write-wins.
	Set(ctx context.Context, userID uuid.UUID, updates []model.PreferenceUpdate) error

	// RemoveItem filters item out of a list-valued key. When the list
	// empties, the row is deleted and deleted=true is reported.
	RemoveItem(ctx context.Context, userID uuid.UUID, key, item string) (deleted bool, err error)

	// ListByUser returns all preference rows, most recently updated first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PreferenceEntry, error)
}
