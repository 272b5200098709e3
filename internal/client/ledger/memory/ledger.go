// Package memory is an in-process devnet implementation of the sentiment
// contract. It keeps entries in memory, checks input and decryption proofs
// against the KMS address and confirms writes immediately.
package memory

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrEntryExists = errors.New("Business data already exists")
	ErrNoSigner    = errors.New("signer is required")
)

type record struct {
	gateway.EntryRecord
	handle common.Hash
}

type Ledger struct {
	address string
	kms     common.Address

	mu      sync.RWMutex
	entries map[string]*record
	order   []string
	nonce   uint64

	available atomic.Bool
	now       func() time.Time
}

// New deploys an empty contract at address. A zero kms address disables
// proof checks.
func New(address string, kms common.Address) *Ledger {
	l := &Ledger{
		address: address,
		kms:     kms,
		entries: make(map[string]*record),
		now:     time.Now,
	}
	l.available.Store(true)
	return l
}

// SetAvailable toggles the contract's isAvailable answer.
func (l *Ledger) SetAvailable(v bool) {
	l.available.Store(v)
}

func (l *Ledger) Reader() gateway.LedgerReader {
	return l
}

func (l *Ledger) Writer(signer gateway.Signer) (gateway.LedgerWriter, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}
	return &writer{ledger: l, signer: signer}, nil
}

func (l *Ledger) Close() error {
	return nil
}

func (l *Ledger) GetAllEntryIDs(context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...), nil
}

func (l *Ledger) GetEntry(_ context.Context, id string) (*gateway.EntryRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, gateway.ErrEntryNotFound)
	}
	rec := r.EntryRecord
	return &rec, nil
}

func (l *Ledger) GetEncryptedValueHandle(_ context.Context, id string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.entries[id]
	if !ok {
		return "", fmt.Errorf("%s: %w", id, gateway.ErrEntryNotFound)
	}
	return r.handle.Hex(), nil
}

func (l *Ledger) IsAvailable(context.Context) (bool, error) {
	return l.available.Load(), nil
}

func (l *Ledger) Address(context.Context) (string, error) {
	return l.address, nil
}

func (l *Ledger) checkProofs() bool {
	return l.kms != (common.Address{})
}

// txHash derives a unique pseudo transaction hash; callers hold l.mu.
func (l *Ledger) txHash(method, id string) string {
	l.nonce++
	return crypto.Keccak256Hash([]byte(method), []byte(id), binary.BigEndian.AppendUint64(nil, l.nonce)).Hex()
}

type writer struct {
	ledger *Ledger
	signer gateway.Signer
}

func (w *writer) CreateEntry(ctx context.Context, req gateway.CreateEntryRequest) (gateway.Transaction, error) {
	if err := w.signer.Approve(ctx, "createBusinessData "+req.ID); err != nil {
		return nil, err
	}

	l := w.ledger
	account := w.signer.Address()
	handle := common.BytesToHash(req.Ciphertext)

	if l.checkProofs() {
		if err := coprocessor.VerifyInputProof(l.kms, handle, l.address, account, req.Proof); err != nil {
			return nil, fmt.Errorf("input proof: %w", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[req.ID]; ok {
		return nil, ErrEntryExists
	}
	l.entries[req.ID] = &record{
		EntryRecord: gateway.EntryRecord{
			Name:         req.Name,
			Description:  req.Description,
			Timestamp:    l.now().Unix(),
			Creator:      account,
			PublicValue1: req.PublicValue1,
			PublicValue2: req.PublicValue2,
		},
		handle: handle,
	}
	l.order = append(l.order, req.ID)

	return tx(l.txHash("createBusinessData", req.ID)), nil
}

func (w *writer) VerifyDecryption(ctx context.Context, id string, clearValues, proof []byte) (gateway.Transaction, error) {
	if err := w.signer.Approve(ctx, "verifyDecryption "+id); err != nil {
		return nil, err
	}

	l := w.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, gateway.ErrEntryNotFound)
	}
	if r.IsVerified {
		return nil, gateway.ErrAlreadyVerified
	}

	if l.checkProofs() {
		if err := coprocessor.VerifyDecryptionProof(l.kms, []string{r.handle.Hex()}, clearValues, proof); err != nil {
			return nil, fmt.Errorf("decryption proof: %w", err)
		}
	}

	values, err := coprocessor.DecodeClearValues(clearValues)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("expected one clear value, got %d", len(values))
	}

	r.IsVerified = true
	r.DecryptedValue = values[0]

	return tx(l.txHash("verifyDecryption", id)), nil
}

// tx is already mined when it is returned.
type tx string

func (t tx) Hash() string { return string(t) }

func (t tx) Wait(ctx context.Context) error {
	return ctx.Err()
}
