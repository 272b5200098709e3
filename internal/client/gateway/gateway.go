// Package gateway declares the external collaborators the client
// orchestrates: the wallet session, the FHE encryption gateway and the
// ledger contract. Concrete adapters live in sibling packages.
package gateway

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrAlreadyVerified = errors.New("Data already verified")
	ErrUserRejected    = errors.New("user rejected transaction")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrUnavailable     = errors.New("gateway unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotInitialized  = errors.New("encryption gateway not initialized")
)

// IsAlreadyVerified reports whether err says the entry was verified by
// someone else. Remote ledgers only return the revert reason as text, so
// the message is matched as well as the sentinel.
func IsAlreadyVerified(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAlreadyVerified) || strings.Contains(err.Error(), ErrAlreadyVerified.Error())
}

// IsUserRejected reports whether err is a signature the user declined.
func IsUserRejected(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUserRejected) || strings.Contains(strings.ToLower(err.Error()), ErrUserRejected.Error())
}

// Signer authorises ledger writes for one account.
type Signer interface {
	Address() string
	// Approve asks the account holder to confirm an action. A refusal
	// returns ErrUserRejected.
	Approve(ctx context.Context, action string) error
	// SignHash signs a 32-byte digest with the account key.
	SignHash(hash []byte) ([]byte, error)
}

// Session is the wallet connection.
type Session interface {
	Connected() bool
	Account() string
	Signer() (Signer, error)
}

// EncryptedInput is a ciphertext handle plus the proof that it encrypts a
// well-formed value for (contract, account).
type EncryptedInput struct {
	Handle []byte
	Proof  []byte
}

// DecryptionResult carries cleartext values keyed by handle, the same values
// ABI-encoded for the ledger, and the decryption proof.
type DecryptionResult struct {
	ClearValues map[string]uint64
	AbiEncoded  []byte
	Proof       []byte
}

// Encryptor is the FHE encryption gateway.
type Encryptor interface {
	Initialize(ctx context.Context) error
	Initialized() bool
	Encrypt(ctx context.Context, contract, account string, value uint32) (*EncryptedInput, error)
	RequestDecryption(ctx context.Context, handles []string, contract string) (*DecryptionResult, error)
}

// EntryRecord is an entry's raw ledger fields. PublicValue1 and
// PublicValue2 are reserved slots and carried as-is.
type EntryRecord struct {
	Name           string
	Description    string
	Timestamp      int64
	Creator        string
	PublicValue1   uint64
	PublicValue2   uint64
	IsVerified     bool
	DecryptedValue uint64
}

// CreateEntryRequest is the payload of a new ledger entry.
type CreateEntryRequest struct {
	ID           string
	Name         string
	Ciphertext   []byte
	Proof        []byte
	PublicValue1 uint64
	PublicValue2 uint64
	Description  string
}

// Transaction is a dispatched ledger write.
type Transaction interface {
	Hash() string
	// Wait blocks until the write is confirmed or fails.
	Wait(ctx context.Context) error
}

type LedgerReader interface {
	GetAllEntryIDs(ctx context.Context) ([]string, error)
	GetEntry(ctx context.Context, id string) (*EntryRecord, error)
	GetEncryptedValueHandle(ctx context.Context, id string) (string, error)
	IsAvailable(ctx context.Context) (bool, error)
	Address(ctx context.Context) (string, error)
}

// LedgerWriter is the signer-bound view of the contract.
type LedgerWriter interface {
	CreateEntry(ctx context.Context, req CreateEntryRequest) (Transaction, error)
	VerifyDecryption(ctx context.Context, id string, clearValues, proof []byte) (Transaction, error)
}

// Ledger opens reader and writer views of one contract.
type Ledger interface {
	Reader() LedgerReader
	// Writer binds the contract to signer.
	Writer(signer Signer) (LedgerWriter, error)
	Close() error
}
