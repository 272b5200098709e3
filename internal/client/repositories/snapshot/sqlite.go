package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Replace(ctx context.Context, entries []models.Entry) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}

		query := `INSERT INTO entries (entry_key, position, id, name, team, timestamp, creator, is_verified, decrypted_value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(entry_key) DO UPDATE SET position = excluded.position`
		for i, e := range entries {
			_, err := tx.ExecContext(ctx, query,
				e.EntryKey, i, e.ID, e.Name, e.Team, e.Timestamp, e.Creator, e.IsVerified, e.DecryptedValue)
			if err != nil {
				return fmt.Errorf("failed to insert entry %s: %w", e.EntryKey, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Load(ctx context.Context) ([]models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT entry_key, id, name, team, timestamp, creator, is_verified, decrypted_value
		FROM entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}

	entries, err := dbx.CollectRows(rows, func(s dbx.RowScanner) (models.Entry, error) {
		var e models.Entry
		err := s.Scan(&e.EntryKey, &e.ID, &e.Name, &e.Team, &e.Timestamp, &e.Creator, &e.IsVerified, &e.DecryptedValue)
		if !e.IsVerified {
			e.DecryptedValue = 0
		}
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan entries: %w", err)
	}
	return entries, nil
}
