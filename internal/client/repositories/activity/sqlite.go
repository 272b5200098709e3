package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
	"github.com/dmitrijs2005/moodkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Record(ctx context.Context, a status.Activity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity (request_id, account, message, at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(request_id) DO NOTHING`,
		a.RequestID, a.Account, a.Message, a.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]status.Activity, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT request_id, account, message, at FROM (
			SELECT seq, request_id, account, message, at FROM activity ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select activity: %w", err)
	}

	items, err := dbx.CollectRows(rows, func(s dbx.RowScanner) (status.Activity, error) {
		var a status.Activity
		var at int64
		if err := s.Scan(&a.RequestID, &a.Account, &a.Message, &at); err != nil {
			return a, err
		}
		a.At = time.UnixMilli(at).UTC()
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}
	return items, nil
}
