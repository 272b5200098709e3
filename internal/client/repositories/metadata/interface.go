// Package metadata is a key/value table for small pieces of client state
// that outlive a session, such as the last connected account.
package metadata

import (
	"context"
)

// KeyAccount holds the address of the last connected wallet.
const KeyAccount = "account"

type Repository interface {
	// Get returns (nil, nil) for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
