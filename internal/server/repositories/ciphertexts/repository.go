// Package ciphertexts stores the relayer's sealed values by handle.
package ciphertexts

import (
	"context"

	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
)

// Repository is the coprocessor's ciphertext store. Get returns
// coprocessor.ErrHandleNotFound for an unknown handle.
type Repository interface {
	Save(ctx context.Context, c coprocessor.Ciphertext) error
	Get(ctx context.Context, handle string) (*coprocessor.Ciphertext, error)
}
