package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/model"
	"github.com/avolkova/reelist/internal/prefs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestPreferenceRepo_Set_ScalarOverwrites(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO preferences \(user_id, key, value, updated_at\) VALUES \(\$1,\$2,\$3,now\(\)\) ON CONFLICT \(user_id, key\) DO UPDATE SET value=EXCLUDED.value, updated_at=now\(\)`).
		WithArgs(userID, "preferred_language", []byte(`"en"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := r.Set(context.Background(), userID, []model.PreferenceUpdate{
		{Key: "preferred_language", Value: "en"},
	})
	require.NoError(t, err)
}

func TestPreferenceRepo_Set_ListMergesUnderLock(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM preferences WHERE user_id=\$1 AND key=\$2 FOR UPDATE`).
		WithArgs(userID, prefs.KeyFavoriteGenres).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`["Action","Comedy"]`)))
	mock.ExpectExec(`INSERT INTO preferences .+ DO UPDATE SET value=EXCLUDED.value, updated_at=now\(\)`).
		WithArgs(userID, prefs.KeyFavoriteGenres, []byte(`["Action","Comedy","Drama"]`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := r.Set(context.Background(), userID, []model.PreferenceUpdate{
		{Key: prefs.KeyFavoriteGenres, Value: []any{"Comedy", "Drama"}},
	})
	require.NoError(t, err)
}

func TestPreferenceRepo_Set_ListFirstWrite(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM preferences WHERE user_id=\$1 AND key=\$2 FOR UPDATE`).
		WithArgs(userID, prefs.KeyFavoriteActors).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO preferences .+ DO UPDATE SET value=EXCLUDED.value, updated_at=now\(\)`).
		WithArgs(userID, prefs.KeyFavoriteActors, []byte(`["Tom Hanks"]`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := r.Set(context.Background(), userID, []model.PreferenceUpdate{
		{Key: prefs.KeyFavoriteActors, Value: []any{map[string]any{"name": "Tom Hanks"}}},
	})
	require.NoError(t, err)
}

func TestPreferenceRepo_Set_NonListValueForListKey(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := r.Set(context.Background(), userID, []model.PreferenceUpdate{
		{Key: prefs.KeyFavoriteGenres, Value: "Action"},
	})
	require.ErrorIs(t, err, errs.ErrNotListValued)
}

func TestPreferenceRepo_Set_MultiplePairsOneTx(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM preferences WHERE user_id=\$1 AND key=\$2 FOR UPDATE`).
		WithArgs(userID, prefs.KeyFavoriteGenres).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO preferences .+`).
		WithArgs(userID, prefs.KeyFavoriteGenres, []byte(`["Drama"]`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO preferences .+`).
		WithArgs(userID, "subtitles", []byte(`true`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := r.Set(context.Background(), userID, []model.PreferenceUpdate{
		{Key: prefs.KeyFavoriteGenres, Value: []any{"Drama"}},
		{Key: "subtitles", Value: true},
	})
	require.NoError(t, err)
}

func TestPreferenceRepo_RemoveItem_DeletesEmptiedKey(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())

	// Stored via a nested-name representation; removal matches by canonical name.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM preferences WHERE user_id=\$1 AND key=\$2 FOR UPDATE`).
		WithArgs(userID, prefs.KeyFavoriteActors).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`[{"name":{"name":"Tom Hanks"}}]`)))
	mock.ExpectExec(`DELETE FROM preferences WHERE user_id=\$1 AND key=\$2`).
		WithArgs(userID, prefs.KeyFavoriteActors).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	deleted, err := r.RemoveItem(context.Background(), userID, prefs.KeyFavoriteActors, "Tom Hanks")
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestPreferenceRepo_RemoveItem_KeepsRemainder(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM preferences WHERE user_id=\$1 AND key=\$2 FOR UPDATE`).
		WithArgs(userID, prefs.KeyFavoriteGenres).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`["Action","Comedy"]`)))
	mock.ExpectExec(`UPDATE preferences SET value=\$3, updated_at=now\(\) WHERE user_id=\$1 AND key=\$2`).
		WithArgs(userID, prefs.KeyFavoriteGenres, []byte(`["Action"]`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	deleted, err := r.RemoveItem(context.Background(), userID, prefs.KeyFavoriteGenres, "Comedy")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestPreferenceRepo_RemoveItem_MissingKey(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM preferences WHERE user_id=\$1 AND key=\$2 FOR UPDATE`).
		WithArgs(userID, prefs.KeyFavoriteActors).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.RemoveItem(context.Background(), userID, prefs.KeyFavoriteActors, "Tom Hanks")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPreferenceRepo_RemoveItem_ScalarValue(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT value FROM preferences WHERE user_id=\$1 AND key=\$2 FOR UPDATE`).
		WithArgs(userID, "preferred_language").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`"en"`)))
	mock.ExpectRollback()

	_, err := r.RemoveItem(context.Background(), userID, "preferred_language", "en")
	require.ErrorIs(t, err, errs.ErrNotListValued)
}

func TestPreferenceRepo_ListByUser(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	userID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"key", "value", "updated_at"}).
		AddRow(prefs.KeyFavoriteGenres, []byte(`["Action","Drama"]`), ts).
		AddRow("preferred_language", []byte(`"en"`), ts.Add(-time.Hour))

	mock.ExpectQuery(`SELECT key, value, updated_at FROM preferences WHERE user_id=\$1 ORDER BY updated_at DESC`).
		WithArgs(userID).
		WillReturnRows(rows)

	out, err := r.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, prefs.KeyFavoriteGenres, out[0].Key)
	require.Equal(t, []any{"Action", "Drama"}, out[0].Value)
	require.Equal(t, "en", out[1].Value)
}

func TestPreferenceRepo_Set_TxBeginErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPreferenceRepo(db)

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))
	err := r.Set(context.Background(), uuid.Must(uuid.NewV4()), nil)
	require.Error(t, err)
}
