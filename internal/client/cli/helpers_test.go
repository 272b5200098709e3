package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/client/report"
	"github.com/dmitrijs2005/moodkeeper/internal/client/services"
	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
	"github.com/dmitrijs2005/moodkeeper/internal/client/store"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

// output collects everything printed through printlnFn.
type output struct {
	mu    sync.Mutex
	lines []string
}

func (o *output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return strings.Join(o.lines, "")
}

func capturePrint(t *testing.T) *output {
	t.Helper()
	out := &output{}
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out.mu.Lock()
		defer out.mu.Unlock()
		out.lines = append(out.lines, fmt.Sprintln(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return out
}

func readerFromLines(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

type fakeWallet struct {
	account string
	created []byte
	key     string
	err     error
}

func (f *fakeWallet) KeystorePath() string { return "wallet.json" }

func (f *fakeWallet) CreateWallet(_ context.Context, password []byte) (string, error) {
	f.created = append([]byte(nil), password...)
	return "0x1111111111111111111111111111111111111111", f.err
}

func (f *fakeWallet) ImportWallet(_ context.Context, hexKey string, _ []byte) (string, error) {
	f.key = hexKey
	return "0x2222222222222222222222222222222222222222", f.err
}

func (f *fakeWallet) Connect(context.Context, []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.account = "0x3333333333333333333333333333333333333333"
	return f.account, nil
}

func (f *fakeWallet) Disconnect(context.Context)                  { f.account = "" }
func (f *fakeWallet) Connected() bool                             { return f.account != "" }
func (f *fakeWallet) Account() string                             { return f.account }
func (f *fakeWallet) LastAccount(context.Context) (string, error) { return "", nil }

type fakeService struct {
	services.SentimentService

	initCalls  int
	submitted  []models.DraftEntry
	submitErr  error
	decrypted  []string
	decryptVal *int
	decryptErr error
	reloads    int
	checkErr   error
}

func (f *fakeService) Initialize(context.Context) error { f.initCalls++; return nil }

func (f *fakeService) Submit(_ context.Context, form *models.CreateForm) error {
	f.submitted = append(f.submitted, form.Draft)
	if f.submitErr != nil {
		return f.submitErr
	}
	form.Close()
	return nil
}

func (f *fakeService) Decrypt(_ context.Context, key string) (*int, error) {
	f.decrypted = append(f.decrypted, key)
	return f.decryptVal, f.decryptErr
}

func (f *fakeService) Reload(context.Context) error { f.reloads++; return nil }

func (f *fakeService) CheckAvailability(context.Context) (bool, error) {
	return f.checkErr == nil, f.checkErr
}

func (f *fakeService) Contract() string { return "0xcontract" }

// stubReader serves a fixed set of ledger records in key order.
type stubReader struct {
	gateway.LedgerReader
	keys    []string
	records map[string]*gateway.EntryRecord
}

func (s stubReader) GetAllEntryIDs(context.Context) ([]string, error) { return s.keys, nil }

func (s stubReader) GetEntry(_ context.Context, id string) (*gateway.EntryRecord, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, gateway.ErrEntryNotFound
	}
	return r, nil
}

func seededStore(t *testing.T) *store.EntryStore {
	t.Helper()
	r := stubReader{
		keys: []string{"sentiment-100", "sentiment-200", "sentiment-300"},
		records: map[string]*gateway.EntryRecord{
			"sentiment-100": {Name: "alice", Description: "core", Timestamp: 1700000000, Creator: "0xa", IsVerified: true, DecryptedValue: 8},
			"sentiment-200": {Name: "bob", Description: "web", Timestamp: 1700000100, Creator: "0xb", IsVerified: true, DecryptedValue: 3},
			"sentiment-300": {Name: "carol", Description: "core", Timestamp: 1700000200, Creator: "0xc"},
		},
	}
	s := store.New(nil, logging.Nop())
	s.SetReader(r)
	require.NoError(t, s.Reload(context.Background()))
	return s
}

type recordingExporter struct {
	got report.Report
	err error
}

func (r *recordingExporter) Export(_ context.Context, rep report.Report) (string, error) {
	r.got = rep
	return "mem://report", r.err
}

type historyStub struct {
	items []status.Activity
	limit int
}

func (h *historyStub) List(_ context.Context, limit int) ([]status.Activity, error) {
	h.limit = limit
	return h.items, nil
}

type testApp struct {
	*App
	wallet *fakeWallet
	svc    *fakeService
	out    *output
}

func newTestApp(t *testing.T, input *bufio.Reader) *testApp {
	t.Helper()
	out := capturePrint(t)
	w := &fakeWallet{}
	svc := &fakeService{}
	a := NewApp(Deps{
		Wallet:   w,
		Service:  svc,
		Store:    seededStore(t),
		Status:   status.NewTracker(time.Hour, time.Hour),
		Activity: status.NewActivityLog(status.DefaultWindow, logging.Nop()),
		Reader:   input,
		Out:      io.Discard,
	})
	a.now = func() time.Time { return time.Unix(1700000500, 0) }
	return &testApp{App: a, wallet: w, svc: svc, out: out}
}
