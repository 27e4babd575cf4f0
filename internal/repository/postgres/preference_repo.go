package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/model"
	"github.com/avolkova/reelist/internal/prefs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// PreferenceRepo implements PreferenceRepository using PostgreSQL. Values are
// stored as JSONB; list-valued keys always hold arrays of canonical strings.
type PreferenceRepo struct{ db *DB }

// NewPreferenceRepo constructs a preference repository.
func NewPreferenceRepo(db *DB) *PreferenceRepo { return &PreferenceRepo{db: db} }

const (
	prefSelectForUpdate = `SELECT value FROM preferences WHERE user_id=$1 AND key=$2 FOR UPDATE`
	prefUpsert          = `
INSERT INTO preferences (user_id, key, value, updated_at)
VALUES ($1,$2,$3,now())
ON CONFLICT (user_id, key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
)

// Set applies every update in one transaction. List-valued keys are read
// under a row lock and merged so concurrent writers on the same key cannot
// lose updates; scalar keys are overwritten last-write-wins.
func (r *PreferenceRepo) Set(
	ctx context.Context, userID uuid.UUID, updates []model.PreferenceUpdate,
) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
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

	for i := range updates {
		var raw []byte
		if raw, err = r.nextValueTx(ctx, tx, userID, updates[i]); err != nil {
			return fmt.Errorf("preference %q: %w", updates[i].Key, err)
		}
		if _, err = tx.Exec(ctx, prefUpsert, userID, updates[i].Key, raw); err != nil {
			return err
		}
	}
	return nil
}

// nextValueTx computes the serialized value to store for one update. For list
// keys this reads the current list on the transaction and merges the incoming
// elements into it.
func (r *PreferenceRepo) nextValueTx(
	ctx context.Context, tx pgx.Tx, userID uuid.UUID, up model.PreferenceUpdate,
) ([]byte, error) {
	if !prefs.IsListKey(up.Key) {
		return json.Marshal(up.Value)
	}

	incoming, ok := asList(up.Value)
	if !ok {
		return nil, errs.ErrNotListValued
	}

	var stored []byte
	err := tx.QueryRow(ctx, prefSelectForUpdate, userID, up.Key).Scan(&stored)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var existing []any
	if len(stored) > 0 {
		// A non-array stored value for a list key is treated as empty
		// rather than failing the whole set.
		_ = json.Unmarshal(stored, &existing)
	}

	return json.Marshal(prefs.MergeList(existing, incoming))
}

// RemoveItem filters item out of a list-valued key inside one transaction.
// The row is deleted when the resulting list is empty.
func (r *PreferenceRepo) RemoveItem(
	ctx context.Context, userID uuid.UUID, key, item string,
) (deleted bool, err error) {
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

	var stored []byte
	if err = tx.QueryRow(ctx, prefSelectForUpdate, userID, key).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, errs.ErrNotFound
		}
		return false, err
	}

	var list []any
	if err = json.Unmarshal(stored, &list); err != nil {
		return false, errs.ErrNotListValued
	}

	kept, _ := prefs.FilterList(list, item, prefs.IsPersonKey(key))
	if len(kept) == 0 {
		const del = `DELETE FROM preferences WHERE user_id=$1 AND key=$2`
		if _, err = tx.Exec(ctx, del, userID, key); err != nil {
			return false, err
		}
		return true, nil
	}

	var raw []byte
	if raw, err = json.Marshal(kept); err != nil {
		return false, err
	}
	const upd = `UPDATE preferences SET value=$3, updated_at=now() WHERE user_id=$1 AND key=$2`
	if _, err = tx.Exec(ctx, upd, userID, key, raw); err != nil {
		return false, err
	}
	return false, nil
}

// ListByUser returns all preference rows, most recently updated first.
func (r *PreferenceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PreferenceEntry, error) {
	const q = `
SELECT key, value, updated_at
FROM preferences
WHERE user_id=$1
ORDER BY updated_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PreferenceEntry
	for rows.Next() {
		var (
			entry model.PreferenceEntry
			raw   []byte
		)
		if err = rows.Scan(&entry.Key, &raw, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		if err = json.Unmarshal(raw, &entry.Value); err != nil {
			return nil, fmt.Errorf("preference %q: %w", entry.Key, err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// asList coerces the decoded JSON forms a list value can arrive in.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case nil:
		return nil, false
	}
	return nil, false
}
