// Package services contains the client's application services. The
// sentiment service runs the submission and decryption workflows against
// the session, the encryption gateway and the ledger, and keeps the entry
// store, status line and activity log in step with them.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
	"github.com/dmitrijs2005/moodkeeper/internal/client/store"
	"github.com/dmitrijs2005/moodkeeper/internal/common"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
)

var (
	ErrNotConnected     = errors.New("wallet not connected")
	ErrInFlight         = errors.New("operation already in progress")
	ErrGatewayFailure   = errors.New("gateway failure")
	ErrUserRejected     = fmt.Errorf("%w: signature rejected", ErrGatewayFailure)
	ErrDecryptionFailed = errors.New("decryption failed")
)

// User-visible status messages.
const (
	MsgConnectFirst       = "Please connect wallet first"
	MsgCreating           = "Creating sentiment with FHE encryption..."
	MsgWaitingConfirm     = "Waiting for transaction confirmation..."
	MsgRecorded           = "Sentiment recorded successfully!"
	MsgRejected           = "Transaction rejected"
	MsgSubmissionFailed   = "Submission failed: "
	MsgAlreadyVerified    = "Data already verified"
	MsgVerifying          = "Verifying decryption..."
	MsgDecrypted          = "Data decrypted successfully!"
	MsgIsAlreadyVerified  = "Data is already verified"
	MsgDecryptionFailed   = "Decryption failed"
	MsgLoadFailed         = "Failed to load data"
	MsgAvailable          = "Contract is available!"
	MsgAvailabilityFailed = "Availability check failed"
	MsgInitFailed         = "FHEVM initialization failed."
)

// SentimentService runs the client workflows.
//
// Submit and Decrypt each allow one call in flight; a concurrent second
// call returns ErrInFlight without side effects. Both end in a full store
// reload on success.
type SentimentService interface {
	// Initialize prepares the encryption gateway on first use, then
	// resolves the contract address and reloads the store.
	Initialize(ctx context.Context) error
	// Submit encrypts and records form's draft. The form is closed on success
	// and left untouched on failure.
	Submit(ctx context.Context, form *models.CreateForm) error
	// Decrypt reveals the value of entryKey. It returns (nil, nil) when
	// another actor verified the entry first.
	Decrypt(ctx context.Context, entryKey string) (*int, error)
	// Reload refreshes the entry store from the ledger.
	Reload(ctx context.Context) error
	// CheckAvailability asks the ledger whether the contract answers and
	// reports the outcome on the status line.
	CheckAvailability(ctx context.Context) (bool, error)
	// Contract is the resolved contract address, "" before Initialize.
	Contract() string

	Creating() bool
	Encrypting() bool
	Decrypting() bool
}

// Deps are the collaborators of the service.
type Deps struct {
	Session   gateway.Session
	Encryptor gateway.Encryptor
	Ledger    gateway.Ledger
	Store     *store.EntryStore
	Status    *status.Tracker
	Activity  *status.ActivityLog
	Log       logging.Logger
}

type sentimentService struct {
	Deps

	mu       sync.Mutex
	contract string

	creating   atomic.Bool
	encrypting atomic.Bool
	decrypting atomic.Bool

	lastKeyMs atomic.Int64
	now       func() time.Time
}

// NewSentimentService wires d into a SentimentService and binds d.Store to
// the ledger reader. A nil d.Log discards output.
func NewSentimentService(d Deps) SentimentService {
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	d.Log = d.Log.With("module", "sentiment_service")
	d.Store.SetReader(d.Ledger.Reader())
	return &sentimentService{Deps: d, now: time.Now}
}

func (s *sentimentService) Creating() bool   { return s.creating.Load() }
func (s *sentimentService) Encrypting() bool { return s.encrypting.Load() }
func (s *sentimentService) Decrypting() bool { return s.decrypting.Load() }

func (s *sentimentService) Contract() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contract
}

// contractAddress returns the cached contract address, asking the ledger
// the first time.
func (s *sentimentService) contractAddress(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contract != "" {
		return s.contract, nil
	}
	addr, err := s.Ledger.Reader().Address(ctx)
	if err != nil {
		return "", fmt.Errorf("contract address: %w", err)
	}
	s.contract = addr
	return addr, nil
}

func (s *sentimentService) connected() bool {
	return s.Session.Connected() && s.Session.Account() != ""
}

// Initialize runs on every connect. The gateway is set up once per
// process, but the contract is resolved and the store reloaded each time,
// also when gateway setup fails.
func (s *sentimentService) Initialize(ctx context.Context) error {
	var initErr error
	if !s.Encryptor.Initialized() {
		if err := s.Encryptor.Initialize(ctx); err != nil {
			s.Log.Error(ctx, "encryption gateway initialization failed", "error", err)
			s.Status.Error(MsgInitFailed)
			initErr = fmt.Errorf("%w: %w", ErrGatewayFailure, err)
		}
	}

	if _, err := s.contractAddress(ctx); err != nil {
		s.Log.Error(ctx, "failed to resolve contract", "error", err)
		if initErr == nil {
			s.Status.Error(MsgLoadFailed)
		}
		return errors.Join(initErr, fmt.Errorf("%w: %w", ErrGatewayFailure, err))
	}

	if err := s.Reload(ctx); err != nil {
		return errors.Join(initErr, err)
	}
	return initErr
}

// Reload refreshes the store. A failure leaves the previous snapshot in
// place and shows a transient error.
func (s *sentimentService) Reload(ctx context.Context) error {
	if err := s.Store.Reload(ctx); err != nil {
		s.Log.Error(ctx, "entry store reload failed", "error", err)
		s.Status.Error(MsgLoadFailed)
		return err
	}
	return nil
}

// reloadAfterWrite refreshes the store once a workflow has finished. Its
// failure does not undo the workflow's outcome.
func (s *sentimentService) reloadAfterWrite(ctx context.Context) {
	if err := s.Store.Reload(ctx); err != nil {
		s.Log.Warn(ctx, "reload after write failed", "error", err)
	}
}

func (s *sentimentService) CheckAvailability(ctx context.Context) (bool, error) {
	ok, err := s.Ledger.Reader().IsAvailable(ctx)
	if err != nil || !ok {
		if err == nil {
			err = gateway.ErrUnavailable
		}
		s.Log.Warn(ctx, "availability check failed", "error", err)
		s.Status.Error(MsgAvailabilityFailed)
		return false, fmt.Errorf("%w: %w", ErrGatewayFailure, err)
	}
	s.Status.Success(MsgAvailable)
	return true, nil
}

// nextEntryKey returns sentiment-<unix ms>, strictly increasing within the
// process.
func (s *sentimentService) nextEntryKey() string {
	for {
		last := s.lastKeyMs.Load()
		ms := s.now().UnixMilli()
		if ms <= last {
			ms = last + 1
		}
		if s.lastKeyMs.CompareAndSwap(last, ms) {
			return fmt.Sprintf("%s%d", common.EntryKeyPrefix, ms)
		}
	}
}

func (s *sentimentService) Submit(ctx context.Context, form *models.CreateForm) error {
	if !s.connected() {
		s.Status.Error(MsgConnectFirst)
		return ErrNotConnected
	}
	if !s.creating.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer s.creating.Store(false)

	s.Status.Pending(MsgCreating)

	draft := form.Draft
	account := s.Session.Account()

	err := s.submit(ctx, account, draft)
	if err != nil {
		return s.submitFailed(ctx, err)
	}

	s.Activity.Append(ctx, account, "Created sentiment: "+draft.Name)
	s.Status.Success(MsgRecorded)
	s.reloadAfterWrite(ctx)
	form.Close()
	return nil
}

func (s *sentimentService) submit(ctx context.Context, account string, draft models.DraftEntry) error {
	mood := models.ParseMood(draft.MoodScore)
	if mood < 0 || int64(mood) > math.MaxUint32 {
		return fmt.Errorf("mood score %d is out of range", mood)
	}
	key := s.nextEntryKey()

	contract, err := s.contractAddress(ctx)
	if err != nil {
		return err
	}

	signer, err := s.Session.Signer()
	if err != nil {
		return err
	}
	writer, err := s.Ledger.Writer(signer)
	if err != nil {
		return err
	}

	s.encrypting.Store(true)
	in, err := s.Encryptor.Encrypt(ctx, contract, account, uint32(mood))
	s.encrypting.Store(false)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	tx, err := writer.CreateEntry(ctx, gateway.CreateEntryRequest{
		ID:          key,
		Name:        draft.Name,
		Ciphertext:  in.Handle,
		Proof:       in.Proof,
		Description: draft.Team,
	})
	if err != nil {
		return err
	}

	s.Status.Pending(MsgWaitingConfirm)
	s.Log.Info(ctx, "sentiment submitted", "entry_key", key, "tx", tx.Hash())

	return tx.Wait(ctx)
}

func (s *sentimentService) submitFailed(ctx context.Context, err error) error {
	s.Log.Error(ctx, "submission failed", "error", err)
	if gateway.IsUserRejected(err) {
		s.Status.Error(MsgRejected)
		return fmt.Errorf("%w: %w", ErrUserRejected, err)
	}
	s.Status.Error(MsgSubmissionFailed + err.Error())
	return fmt.Errorf("%w: %w", ErrGatewayFailure, err)
}

func (s *sentimentService) Decrypt(ctx context.Context, entryKey string) (*int, error) {
	if !s.connected() {
		s.Status.Error(MsgConnectFirst)
		return nil, ErrNotConnected
	}
	if !s.decrypting.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer s.decrypting.Store(false)

	reader := s.Ledger.Reader()

	rec, err := reader.GetEntry(ctx, entryKey)
	if err != nil {
		return s.decryptFailed(ctx, entryKey, err)
	}
	if rec.IsVerified {
		s.Status.Success(MsgAlreadyVerified)
		s.reloadAfterWrite(ctx)
		v := int(rec.DecryptedValue)
		return &v, nil
	}

	v, err := s.decrypt(ctx, reader, entryKey)
	if err != nil {
		if gateway.IsAlreadyVerified(err) {
			s.Log.Info(ctx, "entry verified concurrently", "entry_key", entryKey)
			s.Status.Success(MsgIsAlreadyVerified)
			s.reloadAfterWrite(ctx)
			return nil, nil
		}
		return s.decryptFailed(ctx, entryKey, err)
	}

	s.Activity.Append(ctx, s.Session.Account(), fmt.Sprintf("Decrypted sentiment: %d", v))
	s.Status.Success(MsgDecrypted)
	s.reloadAfterWrite(ctx)
	return &v, nil
}

// decrypt requests the clear value with its proof and then submits the
// verification transaction, awaiting confirmation.
func (s *sentimentService) decrypt(ctx context.Context, reader gateway.LedgerReader, entryKey string) (int, error) {
	handle, err := reader.GetEncryptedValueHandle(ctx, entryKey)
	if err != nil {
		return 0, err
	}
	contract, err := s.contractAddress(ctx)
	if err != nil {
		return 0, err
	}

	res, err := s.Encryptor.RequestDecryption(ctx, []string{handle}, contract)
	if err != nil {
		return 0, fmt.Errorf("request decryption: %w", err)
	}

	signer, err := s.Session.Signer()
	if err != nil {
		return 0, err
	}
	writer, err := s.Ledger.Writer(signer)
	if err != nil {
		return 0, err
	}

	s.Status.Pending(MsgVerifying)
	tx, err := writer.VerifyDecryption(ctx, entryKey, res.AbiEncoded, res.Proof)
	if err != nil {
		return 0, err
	}
	if err := tx.Wait(ctx); err != nil {
		return 0, err
	}

	v, ok := clearValue(res.ClearValues, handle)
	if !ok {
		return 0, fmt.Errorf("no clear value for handle %s", handle)
	}
	return int(v), nil
}

// clearValue finds handle in values, ignoring hex case.
func clearValue(values map[string]uint64, handle string) (uint64, bool) {
	if v, ok := values[handle]; ok {
		return v, true
	}
	for h, v := range values {
		if strings.EqualFold(h, handle) {
			return v, true
		}
	}
	return 0, false
}

func (s *sentimentService) decryptFailed(ctx context.Context, entryKey string, err error) (*int, error) {
	s.Log.Error(ctx, "decryption failed", "entry_key", entryKey, "error", err)
	s.Status.Error(MsgDecryptionFailed)
	return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
}
