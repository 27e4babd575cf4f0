package repository

import (
	"context"

	"github.com/avolkova/reelist/internal/model"
)

// MediaRepository provides access to canonical media records. Row creation on
// first reference happens inside the mutating tracker transactions and is not
// part of this interface.
type MediaRepository interface {
	// GetByExternalID returns the local record for an external catalog id.
	GetByExternalID(ctx context.Context, externalID string) (*model.MediaRecord, error)

	// Update refreshes the canonical fields of an existing record (backfill path).
	Update(ctx context.Context, rec model.MediaRecord) error
}
