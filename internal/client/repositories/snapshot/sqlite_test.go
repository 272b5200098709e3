package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE entries (
  entry_key       TEXT PRIMARY KEY,
  position        INTEGER NOT NULL,
  id              INTEGER NOT NULL,
  name            TEXT NOT NULL,
  team            TEXT NOT NULL,
  timestamp       INTEGER NOT NULL,
  creator         TEXT NOT NULL,
  is_verified     INTEGER NOT NULL DEFAULT 0,
  decrypted_value INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)
	return db
}

func TestReplaceAndLoad_PreservesOrder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	first := []models.Entry{
		{ID: 3, EntryKey: "sentiment-3", Name: "Cy", Team: "Ops", Timestamp: 30, Creator: "0x3"},
		{ID: 1, EntryKey: "sentiment-1", Name: "Ann", Team: "Eng", Timestamp: 10, Creator: "0x1", IsVerified: true, DecryptedValue: 8},
	}
	require.NoError(t, r.Replace(ctx, first))

	got, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(first, got))

	second := []models.Entry{{ID: 2, EntryKey: "sentiment-2", Name: "Bob", Team: "Sales", Creator: "0x2"}}
	require.NoError(t, r.Replace(ctx, second))

	got, err = r.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(second, got), "replace must drop the old snapshot")
}

func TestReplace_Empty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Replace(ctx, []models.Entry{{EntryKey: "k"}}))
	require.NoError(t, r.Replace(ctx, nil))

	got, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_ZeroesUnverifiedValues(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	_, err := db.Exec(`INSERT INTO entries VALUES ('k', 0, 1, 'n', 't', 0, 'c', 0, 9)`)
	require.NoError(t, err)

	got, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].DecryptedValue)
}

func TestReplace_RollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM entries`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO entries`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	r := NewSQLiteRepository(db)
	err = r.Replace(context.Background(), []models.Entry{{EntryKey: "sentiment-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert entry sentiment-1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT entry_key`).WillReturnError(errors.New("boom"))

	_, err = NewSQLiteRepository(db).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to select entries")
}
