// Package snapshot persists the last successfully reloaded Entry Store
// snapshot so the client can show stale data while the ledger is
// unreachable.
package snapshot

import (
	"context"

	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
)

type Repository interface {
	// Replace swaps the stored snapshot for entries, keeping their order.
	Replace(ctx context.Context, entries []models.Entry) error
	// Load returns the stored snapshot in its original order.
	Load(ctx context.Context) ([]models.Entry, error)
}
