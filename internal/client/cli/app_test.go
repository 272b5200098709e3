package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeProber struct {
	up atomic.Bool
}

func (p *fakeProber) IsAvailable(context.Context) (bool, error) {
	if !p.up.Load() {
		return false, errors.New("connection refused")
	}
	return true, nil
}

func TestSetMode_ChangesAndLogsOnce(t *testing.T) {
	var buf syncBuffer
	ta := newTestApp(t, readerFromLines())
	ta.Log = logging.New(&buf, "text", "info")
	ctx := context.Background()

	ta.setMode(ctx, ModeOnline)
	assert.Equal(t, ModeOnline, ta.Mode())
	assert.Equal(t, 1, strings.Count(buf.String(), "switched mode"))

	ta.setMode(ctx, ModeOnline)
	assert.Equal(t, 1, strings.Count(buf.String(), "switched mode"))

	ta.setMode(ctx, ModeOffline)
	assert.Equal(t, ModeOffline, ta.Mode())
	assert.Equal(t, 2, strings.Count(buf.String(), "switched mode"))
}

func TestProbe(t *testing.T) {
	ta := newTestApp(t, readerFromLines())
	p := &fakeProber{}
	ta.Prober = p

	ta.probe(context.Background())
	assert.Equal(t, ModeOffline, ta.Mode())

	p.up.Store(true)
	ta.probe(context.Background())
	assert.Equal(t, ModeOnline, ta.Mode())
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	ta := newTestApp(t, readerFromLines())
	p := &fakeProber{}
	p.up.Store(true)
	ta.Prober = p

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ta.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return ta.Mode() == ModeOnline }, time.Second, 5*time.Millisecond)
	p.up.Store(false)
	require.Eventually(t, func() bool { return ta.Mode() == ModeOffline }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestGetStatus(t *testing.T) {
	ta := newTestApp(t, readerFromLines())
	assert.Equal(t, "", ta.getStatus())

	ta.wallet.account = "0x3333333333333333333333333333333333333333"
	ta.setMode(context.Background(), ModeOnline)
	assert.Equal(t, "(0x3333...3333 online)", ta.getStatus())
}

func TestStatusChangesArePrinted(t *testing.T) {
	ta := newTestApp(t, readerFromLines())

	ta.Status.Pending("Waiting for transaction confirmation...")
	ta.Status.Error("Transaction rejected")
	ta.Status.Clear()

	assert.Equal(t, "[pending] Waiting for transaction confirmation...\n[error] Transaction rejected\n", ta.out.String())
}

func TestPromptApprover(t *testing.T) {
	var out bytes.Buffer
	approve := PromptApprover(readerFromLines("y", "no"), &out)

	ok, err := approve(context.Background(), "0xabc", "createBusinessData sentiment-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), `Sign "createBusinessData sentiment-1" as 0xabc? [y/N]`)

	ok, err = approve(context.Background(), "0xabc", "verifyDecryption sentiment-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_GreetsAndExits(t *testing.T) {
	ta := newTestApp(t, readerFromLines("help", "exit"))

	ta.Run(context.Background())

	out := ta.out.String()
	assert.Contains(t, out, "Welcome to MoodKeeper CLI")
	assert.Contains(t, out, "wallet new")
	assert.Contains(t, out, "Bye!")
}
