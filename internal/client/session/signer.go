package session

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/ethereum/go-ethereum/crypto"
)

// Approver asks the account holder to confirm action. Returning false
// rejects the signature request.
type Approver func(ctx context.Context, account, action string) (bool, error)

// AutoApprove approves everything.
func AutoApprove(context.Context, string, string) (bool, error) { return true, nil }

type keySigner struct {
	key     *ecdsa.PrivateKey
	address string
	approve Approver
}

// NewSigner wraps key; approve may be nil for unattended use.
func NewSigner(key *ecdsa.PrivateKey, approve Approver) gateway.Signer {
	if approve == nil {
		approve = AutoApprove
	}
	return &keySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex(), approve: approve}
}

func (s *keySigner) Address() string {
	return s.address
}

func (s *keySigner) Approve(ctx context.Context, action string) error {
	ok, err := s.approve(ctx, s.address, action)
	if err != nil {
		return fmt.Errorf("approval: %w", err)
	}
	if !ok {
		return gateway.ErrUserRejected
	}
	return nil
}

func (s *keySigner) SignHash(hash []byte) ([]byte, error) {
	return crypto.Sign(hash, s.key)
}
