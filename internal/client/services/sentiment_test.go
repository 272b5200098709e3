package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/fhe/local"
	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/client/ledger/memory"
	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/client/session"
	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
	"github.com/dmitrijs2005/moodkeeper/internal/client/store"
	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

type fakeSession struct {
	connected bool
	signer    gateway.Signer
}

func (f *fakeSession) Connected() bool { return f.connected }

func (f *fakeSession) Account() string {
	if !f.connected || f.signer == nil {
		return ""
	}
	return f.signer.Address()
}

func (f *fakeSession) Signer() (gateway.Signer, error) {
	if !f.connected {
		return nil, ErrNotConnected
	}
	return f.signer, nil
}

type countingEncryptor struct {
	gateway.Encryptor
	encrypts   int
	decrypts   int
	encryptErr error
}

func (c *countingEncryptor) Encrypt(ctx context.Context, contract, account string, value uint32) (*gateway.EncryptedInput, error) {
	c.encrypts++
	if c.encryptErr != nil {
		return nil, c.encryptErr
	}
	return c.Encryptor.Encrypt(ctx, contract, account, value)
}

func (c *countingEncryptor) RequestDecryption(ctx context.Context, handles []string, contract string) (*gateway.DecryptionResult, error) {
	c.decrypts++
	return c.Encryptor.RequestDecryption(ctx, handles, contract)
}

// raceLedger simulates another actor verifying the entry between the
// precondition check and the verification transaction.
type raceLedger struct {
	*memory.Ledger
}

func (l raceLedger) Writer(s gateway.Signer) (gateway.LedgerWriter, error) {
	w, err := l.Ledger.Writer(s)
	return raceWriter{w}, err
}

type raceWriter struct {
	gateway.LedgerWriter
}

func (raceWriter) VerifyDecryption(context.Context, string, []byte, []byte) (gateway.Transaction, error) {
	return nil, errors.New("execution reverted: Data already verified")
}

type env struct {
	svc      SentimentService
	impl     *sentimentService
	ledger   *memory.Ledger
	enc      *countingEncryptor
	session  *fakeSession
	status   *status.Tracker
	activity *status.ActivityLog
	store    *store.EntryStore
}

type envOption func(*envConfig)

type envConfig struct {
	approve session.Approver
	ledger  func(*memory.Ledger) gateway.Ledger
}

func withApprover(a session.Approver) envOption {
	return func(c *envConfig) { c.approve = a }
}

func withLedger(f func(*memory.Ledger) gateway.Ledger) envOption {
	return func(c *envConfig) { c.ledger = f }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	cfg := envConfig{ledger: func(l *memory.Ledger) gateway.Ledger { return l }}
	for _, o := range opts {
		o(&cfg)
	}

	kms, err := crypto.GenerateKey()
	require.NoError(t, err)
	cp, err := coprocessor.New(make([]byte, 32), kms, coprocessor.NewMemoryRepository())
	require.NoError(t, err)

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	e := &env{
		ledger:   memory.New(contract, cp.KMSAddress()),
		enc:      &countingEncryptor{Encryptor: local.New(cp, logging.Nop())},
		session:  &fakeSession{connected: true, signer: session.NewSigner(userKey, cfg.approve)},
		status:   status.NewTracker(time.Hour, time.Hour),
		activity: status.NewActivityLog(status.DefaultWindow, logging.Nop()),
		store:    store.New(nil, logging.Nop()),
	}
	e.svc = NewSentimentService(Deps{
		Session:   e.session,
		Encryptor: e.enc,
		Ledger:    cfg.ledger(e.ledger),
		Store:     e.store,
		Status:    e.status,
		Activity:  e.activity,
		Log:       logging.Nop(),
	})
	e.impl = e.svc.(*sentimentService)

	require.NoError(t, e.svc.Initialize(context.Background()))
	return e
}

func openForm(name, mood, team string) *models.CreateForm {
	return &models.CreateForm{Open: true, Draft: models.DraftEntry{Name: name, MoodScore: mood, Team: team}}
}

func (e *env) submit(t *testing.T, name, mood, team string) models.Entry {
	t.Helper()
	require.NoError(t, e.svc.Submit(context.Background(), openForm(name, mood, team)))
	snap := e.store.Snapshot()
	require.NotEmpty(t, snap)
	return snap[len(snap)-1]
}

// writeBehindStore records an entry on the ledger without going through
// the service, as another client would.
func (e *env) writeBehindStore(t *testing.T, id string, value uint32) {
	t.Helper()
	ctx := context.Background()
	in, err := e.enc.Encryptor.Encrypt(ctx, contract, e.session.signer.Address(), value)
	require.NoError(t, err)
	w, err := e.ledger.Writer(e.session.signer)
	require.NoError(t, err)
	tx, err := w.CreateEntry(ctx, gateway.CreateEntryRequest{
		ID: id, Name: "n-" + id, Ciphertext: in.Handle, Proof: in.Proof, Description: "Alpha",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Wait(ctx))
}

func TestInitialize_ResolvesContractAndLoads(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, contract, e.svc.Contract())
	assert.False(t, e.store.SyncedAt().IsZero())
	assert.True(t, e.enc.Initialized())
}

func TestInitialize_ReconnectReloadsStore(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, 0, e.store.Len())

	e.session.connected = false
	e.writeBehindStore(t, "sentiment-1", 4)
	e.session.connected = true

	require.NoError(t, e.svc.Initialize(context.Background()))
	require.Equal(t, 1, e.store.Len())
	got, ok := e.store.Get("sentiment-1")
	require.True(t, ok)
	assert.Equal(t, "n-sentiment-1", got.Name)
}

type failingInit struct{ gateway.Encryptor }

func (failingInit) Initialized() bool                { return false }
func (failingInit) Initialize(context.Context) error { return errors.New("no relayer") }

func TestInitialize_FailureStillLoads(t *testing.T) {
	st := status.NewTracker(time.Hour, time.Hour)
	s := store.New(nil, logging.Nop())
	svc := NewSentimentService(Deps{
		Session:   &fakeSession{},
		Encryptor: failingInit{},
		Ledger:    memory.New(contract, common.Address{}),
		Store:     s,
		Status:    st,
		Activity:  status.NewActivityLog(0, logging.Nop()),
	})

	err := svc.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.ErrorContains(t, err, "no relayer")
	assert.Equal(t, status.Status{Kind: status.Error, Message: MsgInitFailed}, st.Current())
	assert.Equal(t, contract, svc.Contract())
	assert.False(t, s.SyncedAt().IsZero())
}

func TestSubmit_NotConnected(t *testing.T) {
	e := newEnv(t)
	e.session.connected = false

	form := openForm("Standup", "7", "Alpha")
	err := e.svc.Submit(context.Background(), form)

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, status.Status{Kind: status.Error, Message: MsgConnectFirst}, e.status.Current())
	assert.Equal(t, 0, e.enc.encrypts)
	assert.True(t, form.Open)
	assert.Equal(t, 0, e.activity.Len())

	ids, err := e.ledger.GetAllEntryIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSubmit_RecordsEntry(t *testing.T) {
	e := newEnv(t)
	form := openForm("Standup", "7", "Alpha")

	require.NoError(t, e.svc.Submit(context.Background(), form))

	assert.False(t, form.Open)
	assert.Equal(t, models.DraftEntry{}, form.Draft)
	assert.Equal(t, status.Status{Kind: status.Success, Message: MsgRecorded}, e.status.Current())
	assert.Equal(t, []string{"Created sentiment: Standup"}, e.activity.Recent())
	assert.False(t, e.svc.Creating())
	assert.False(t, e.svc.Encrypting())

	snap := e.store.Snapshot()
	require.Len(t, snap, 1)
	got := snap[0]
	assert.Equal(t, "Standup", got.Name)
	assert.Equal(t, "Alpha", got.Team)
	assert.Equal(t, e.session.Account(), got.Creator)
	assert.False(t, got.IsVerified)
	assert.Equal(t, 0, got.DecryptedValue)
	assert.Regexp(t, `^sentiment-\d+$`, got.EntryKey)
}

func TestSubmit_UnparsableMoodDefaultsToZero(t *testing.T) {
	e := newEnv(t)
	entry := e.submit(t, "Blank", "meh", "")

	v, err := e.svc.Decrypt(context.Background(), entry.EntryKey)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 0, *v)
}

func TestSubmit_NegativeMoodFails(t *testing.T) {
	e := newEnv(t)
	form := openForm("Bad", "-3", "")

	err := e.svc.Submit(context.Background(), form)
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Equal(t, status.Error, e.status.Current().Kind)
	assert.Contains(t, e.status.Current().Message, MsgSubmissionFailed)
	assert.True(t, form.Open)
	assert.Equal(t, 0, e.enc.encrypts)
}

func TestSubmit_EncryptFailureHasNoLedgerEffect(t *testing.T) {
	e := newEnv(t)
	e.enc.encryptErr = errors.New("relayer down")

	form := openForm("Standup", "7", "Alpha")
	err := e.svc.Submit(context.Background(), form)

	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.NotErrorIs(t, err, ErrUserRejected)
	assert.Equal(t, status.Status{Kind: status.Error, Message: "Submission failed: encrypt: relayer down"}, e.status.Current())

	ids, err := e.ledger.GetAllEntryIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.True(t, form.Open)
	assert.Equal(t, "Standup", form.Draft.Name)
}

func TestSubmit_UserRejected(t *testing.T) {
	deny := func(context.Context, string, string) (bool, error) { return false, nil }
	e := newEnv(t, withApprover(deny))

	form := openForm("Standup", "7", "Alpha")
	err := e.svc.Submit(context.Background(), form)

	assert.ErrorIs(t, err, ErrUserRejected)
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Equal(t, status.Status{Kind: status.Error, Message: MsgRejected}, e.status.Current())
	assert.True(t, form.Open)
	assert.Equal(t, 0, e.activity.Len())
}

func TestSubmit_InFlight(t *testing.T) {
	e := newEnv(t)
	e.impl.creating.Store(true)

	err := e.svc.Submit(context.Background(), openForm("Standup", "7", "Alpha"))
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, 0, e.enc.encrypts)
	assert.True(t, e.svc.Creating())
}

func TestNextEntryKey_StrictlyIncreasing(t *testing.T) {
	e := newEnv(t)
	fixed := time.UnixMilli(1700000000000)
	e.impl.now = func() time.Time { return fixed }

	assert.Equal(t, "sentiment-1700000000000", e.impl.nextEntryKey())
	assert.Equal(t, "sentiment-1700000000001", e.impl.nextEntryKey())
	assert.Equal(t, "sentiment-1700000000002", e.impl.nextEntryKey())
}

func TestDecrypt_RevealsAndVerifies(t *testing.T) {
	e := newEnv(t)
	entry := e.submit(t, "Standup", "8", "Alpha")

	v, err := e.svc.Decrypt(context.Background(), entry.EntryKey)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 8, *v)

	assert.Equal(t, status.Status{Kind: status.Success, Message: MsgDecrypted}, e.status.Current())
	assert.Equal(t, []string{"Created sentiment: Standup", "Decrypted sentiment: 8"}, e.activity.Recent())
	assert.False(t, e.svc.Decrypting())

	got, ok := e.store.Get(entry.EntryKey)
	require.True(t, ok)
	assert.True(t, got.IsVerified)
	assert.Equal(t, 8, got.DecryptedValue)
}

func TestDecrypt_AlreadyVerifiedShortCircuits(t *testing.T) {
	e := newEnv(t)
	entry := e.submit(t, "Standup", "6", "Alpha")

	_, err := e.svc.Decrypt(context.Background(), entry.EntryKey)
	require.NoError(t, err)
	require.Equal(t, 1, e.enc.decrypts)

	v, err := e.svc.Decrypt(context.Background(), entry.EntryKey)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 6, *v)
	assert.Equal(t, 1, e.enc.decrypts)
	assert.Equal(t, status.Status{Kind: status.Success, Message: MsgAlreadyVerified}, e.status.Current())
	assert.Equal(t, 2, e.activity.Len())
}

func TestDecrypt_ConcurrentVerificationIsSuccess(t *testing.T) {
	e := newEnv(t, withLedger(func(l *memory.Ledger) gateway.Ledger { return raceLedger{l} }))
	entry := e.submit(t, "Standup", "6", "Alpha")

	v, err := e.svc.Decrypt(context.Background(), entry.EntryKey)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, status.Status{Kind: status.Success, Message: MsgIsAlreadyVerified}, e.status.Current())
	assert.Equal(t, 1, e.activity.Len())
}

func TestDecrypt_UnknownEntryFails(t *testing.T) {
	e := newEnv(t)

	v, err := e.svc.Decrypt(context.Background(), "sentiment-404")
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
	assert.ErrorIs(t, err, gateway.ErrEntryNotFound)
	assert.Equal(t, status.Status{Kind: status.Error, Message: MsgDecryptionFailed}, e.status.Current())
}

func TestDecrypt_NotConnectedAndInFlight(t *testing.T) {
	e := newEnv(t)

	e.session.connected = false
	_, err := e.svc.Decrypt(context.Background(), "sentiment-1")
	assert.ErrorIs(t, err, ErrNotConnected)

	e.session.connected = true
	e.impl.decrypting.Store(true)
	_, err = e.svc.Decrypt(context.Background(), "sentiment-1")
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, 0, e.enc.decrypts)
}

func TestCheckAvailability(t *testing.T) {
	e := newEnv(t)

	ok, err := e.svc.CheckAvailability(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, status.Status{Kind: status.Success, Message: MsgAvailable}, e.status.Current())

	e.ledger.SetAvailable(false)
	ok, err = e.svc.CheckAvailability(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Equal(t, status.Status{Kind: status.Error, Message: MsgAvailabilityFailed}, e.status.Current())
}

type brokenReader struct{ gateway.LedgerReader }

func (brokenReader) GetAllEntryIDs(context.Context) ([]string, error) {
	return nil, errors.New("rpc down")
}

func TestReload_FailureKeepsSnapshot(t *testing.T) {
	e := newEnv(t)
	e.submit(t, "Standup", "7", "Alpha")
	require.Equal(t, 1, e.store.Len())

	e.store.SetReader(brokenReader{})
	err := e.svc.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, e.store.Len())
	assert.Equal(t, status.Status{Kind: status.Error, Message: MsgLoadFailed}, e.status.Current())
}

func TestClearValue_IgnoresHexCase(t *testing.T) {
	v, ok := clearValue(map[string]uint64{"0xABcd": 4}, "0xabcd")
	assert.True(t, ok)
	assert.Equal(t, uint64(4), v)

	_, ok = clearValue(map[string]uint64{}, "0x01")
	assert.False(t, ok)
}
