package ciphertexts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
	"github.com/dmitrijs2005/moodkeeper/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts c. Handles are content-derived, so saving the same handle
// again is a no-op.
func (r *PostgresRepository) Save(ctx context.Context, c coprocessor.Ciphertext) error {
	query :=
		`INSERT INTO ciphertexts (handle, sealed, nonce, contract, account, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (handle) DO NOTHING
		 `

	_, err := r.db.ExecContext(ctx, query, c.Handle, c.Sealed, c.Nonce, c.Contract, c.Account, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, handle string) (*coprocessor.Ciphertext, error) {
	query :=
		`SELECT handle, sealed, nonce, contract, account, created_at FROM ciphertexts
		 WHERE handle = $1
		 `

	c := &coprocessor.Ciphertext{}
	err := r.db.QueryRowContext(ctx, query, handle).
		Scan(&c.Handle, &c.Sealed, &c.Nonce, &c.Contract, &c.Account, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, coprocessor.ErrHandleNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}
