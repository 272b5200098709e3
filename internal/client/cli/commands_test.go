package cli

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/client/report"
	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPasswords(t *testing.T, passwords ...string) {
	t.Helper()
	orig := getPassword
	i := 0
	getPassword = func(w io.Writer) ([]byte, error) {
		if i >= len(passwords) {
			return nil, errors.New("no more passwords")
		}
		p := passwords[i]
		i++
		return []byte(p), nil
	}
	t.Cleanup(func() { getPassword = orig })
}

func TestSubmit_NotConnectedSkipsPrompts(t *testing.T) {
	ta := newTestApp(t, readerFromLines("should", "not", "be", "read"))

	require.NoError(t, ta.Submit(context.Background()))

	require.Len(t, ta.svc.submitted, 1)
	assert.Equal(t, models.DraftEntry{}, ta.svc.submitted[0])
	line, err := readLine(ta.Reader)
	require.NoError(t, err)
	assert.Equal(t, "should", line)
}

func TestSubmit_FillsDraftAndClosesOnSuccess(t *testing.T) {
	ta := newTestApp(t, readerFromLines("alice", "7", "core"))
	ta.wallet.account = "0xabc"

	require.NoError(t, ta.Submit(context.Background()))

	require.Len(t, ta.svc.submitted, 1)
	assert.Equal(t, models.DraftEntry{Name: "alice", MoodScore: "7", Team: "core"}, ta.svc.submitted[0])
	assert.False(t, ta.form.Open)
	assert.Equal(t, models.DraftEntry{}, ta.form.Draft)
}

func TestSubmit_FailureKeepsDraftForRetry(t *testing.T) {
	ta := newTestApp(t, readerFromLines("alice", "7", "core", "", "9", ""))
	ta.wallet.account = "0xabc"
	ta.svc.submitErr = errors.New("boom")

	require.Error(t, ta.Submit(context.Background()))
	assert.True(t, ta.form.Open)
	assert.Equal(t, "alice", ta.form.Draft.Name)

	require.Error(t, ta.Submit(context.Background()))
	require.Len(t, ta.svc.submitted, 2)
	assert.Equal(t, models.DraftEntry{Name: "alice", MoodScore: "9", Team: "core"}, ta.svc.submitted[1])

	require.NoError(t, ta.Discard(context.Background()))
	assert.False(t, ta.form.Open)
	assert.Equal(t, models.DraftEntry{}, ta.form.Draft)
}

func TestList_AppliesSearchAndTeam(t *testing.T) {
	ctx := context.Background()

	ta := newTestApp(t, readerFromLines())
	require.NoError(t, ta.List(ctx))
	out := ta.out.String()
	for _, name := range []string{"alice", "bob", "carol", "encrypted"} {
		assert.Contains(t, out, name)
	}

	ta = newTestApp(t, readerFromLines())
	require.NoError(t, ta.Search(ctx, "ALI"))
	out = ta.out.String()
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "bob")
	assert.Contains(t, out, `search="ALI"`)

	ta = newTestApp(t, readerFromLines())
	require.NoError(t, ta.Team(ctx, "core"))
	out = ta.out.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "carol")
	assert.NotContains(t, out, "bob")

	ta = newTestApp(t, readerFromLines())
	require.NoError(t, ta.Search(ctx, "nobody"))
	assert.Contains(t, ta.out.String(), "No entries")
}

func TestTeams(t *testing.T) {
	ta := newTestApp(t, readerFromLines())
	require.NoError(t, ta.Teams(context.Background()))
	assert.Equal(t, "core\nweb\n", ta.out.String())
}

func TestShow(t *testing.T) {
	ta := newTestApp(t, readerFromLines())

	require.NoError(t, ta.Show(context.Background(), "100"))
	out := ta.out.String()
	assert.Contains(t, out, "sentiment-100")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "8")

	err := ta.Show(context.Background(), "999")
	require.ErrorIs(t, err, errNoEntry)
}

func TestDecrypt_ResolvesKeys(t *testing.T) {
	ta := newTestApp(t, readerFromLines())
	ta.wallet.account = "0xabc"
	v := 6
	ta.svc.decryptVal = &v

	ctx := context.Background()
	require.NoError(t, ta.Decrypt(ctx, "300"))
	require.NoError(t, ta.Decrypt(ctx, "sentiment-200"))
	require.NoError(t, ta.Decrypt(ctx, "42"))

	assert.Equal(t, []string{"sentiment-300", "sentiment-200", "sentiment-42"}, ta.svc.decrypted)
	assert.Contains(t, ta.out.String(), "Decrypted mood: 6")
}

func TestDecrypt_VerifiedElsewhere(t *testing.T) {
	ta := newTestApp(t, readerFromLines())
	require.NoError(t, ta.Decrypt(context.Background(), "300"))
	assert.Contains(t, ta.out.String(), "verified by someone else")

	ta.svc.decryptErr = errors.New("denied")
	require.Error(t, ta.Decrypt(context.Background(), "300"))
}

func TestStats(t *testing.T) {
	ta := newTestApp(t, readerFromLines())
	require.NoError(t, ta.Stats(context.Background()))

	out := ta.out.String()
	assert.Contains(t, out, "Entries: 3 (verified 2)")
	assert.Contains(t, out, "Average mood: 5.5")
	assert.Contains(t, out, "Positive: 1  Neutral: 0  Negative: 1")
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, readerFromLines())

	require.NoError(t, ta.History(ctx, false))
	assert.Contains(t, ta.out.String(), "No activity")

	ta.Activity.Append(ctx, "0xabc", "Created sentiment: alice")
	ta.Activity.Append(ctx, "0xabc", "Decrypted sentiment: 7")
	require.NoError(t, ta.History(ctx, false))
	assert.Contains(t, ta.out.String(), "Created sentiment: alice\nDecrypted sentiment: 7")

	hist := &historyStub{items: []status.Activity{{Account: "0x3333333333333333", Message: "old entry", At: time.Unix(1, 0)}}}
	ta.Archive = hist
	require.NoError(t, ta.History(ctx, true))
	assert.Equal(t, 0, hist.limit)
	assert.Contains(t, ta.out.String(), "old entry")
}

func TestRefreshAndCheck(t *testing.T) {
	ta := newTestApp(t, readerFromLines())

	require.NoError(t, ta.Refresh(context.Background()))
	assert.Equal(t, 1, ta.svc.reloads)
	assert.Contains(t, ta.out.String(), "Loaded 3 entries")

	ta.svc.checkErr = errors.New("down")
	require.Error(t, ta.Check(context.Background()))
}

func TestExport(t *testing.T) {
	ta := newTestApp(t, readerFromLines())
	rec := &recordingExporter{}
	ta.Exporters = map[string]report.Exporter{"file": rec}

	err := ta.Export(context.Background(), "s3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: file")

	require.NoError(t, ta.Export(context.Background(), ""))
	assert.Equal(t, "0xcontract", rec.got.Contract)
	assert.Equal(t, 1, rec.got.PendingCount)
	assert.Equal(t, 2, rec.got.Stats.VerifiedCount)
	assert.True(t, rec.got.GeneratedAt.Equal(time.Unix(1700000500, 0)))
	assert.Contains(t, ta.out.String(), "Report written to mem://report")

	rec.err = errors.New("disk full")
	require.ErrorContains(t, ta.Export(context.Background(), "file"), "disk full")
}

func TestConnect_InitializesOnEveryConnect(t *testing.T) {
	stubPasswords(t, "pw", "pw")
	ta := newTestApp(t, readerFromLines())

	require.NoError(t, ta.Connect(context.Background()))
	assert.True(t, ta.wallet.Connected())
	assert.Equal(t, 1, ta.svc.initCalls)

	require.NoError(t, ta.Connect(context.Background()))
	assert.Equal(t, 1, ta.svc.initCalls)
	assert.Contains(t, ta.out.String(), "Already connected")

	require.NoError(t, ta.Disconnect(context.Background()))
	assert.False(t, ta.wallet.Connected())

	require.NoError(t, ta.Connect(context.Background()))
	assert.Equal(t, 2, ta.svc.initCalls)
}

func TestConnect_WalletError(t *testing.T) {
	stubPasswords(t, "pw")
	ta := newTestApp(t, readerFromLines())
	ta.wallet.err = errors.New("wrong password")

	require.Error(t, ta.Connect(context.Background()))
	assert.Equal(t, 0, ta.svc.initCalls)
}

func TestWalletNew(t *testing.T) {
	t.Run("mismatch", func(t *testing.T) {
		stubPasswords(t, "a", "b")
		ta := newTestApp(t, readerFromLines())
		require.ErrorIs(t, ta.WalletNew(context.Background()), errPasswordMismatch)
		assert.Nil(t, ta.wallet.created)
	})

	t.Run("empty", func(t *testing.T) {
		stubPasswords(t, "")
		ta := newTestApp(t, readerFromLines())
		require.ErrorIs(t, ta.WalletNew(context.Background()), errEmptyPassword)
	})

	t.Run("ok", func(t *testing.T) {
		stubPasswords(t, "pw", "pw")
		ta := newTestApp(t, readerFromLines())
		require.NoError(t, ta.WalletNew(context.Background()))
		assert.Equal(t, []byte("pw"), ta.wallet.created)
		assert.Contains(t, ta.out.String(), "Wallet created: 0x1111")
	})
}

func TestWalletImport(t *testing.T) {
	stubPasswords(t, "pw", "pw")
	ta := newTestApp(t, readerFromLines("deadbeef"))

	require.NoError(t, ta.WalletImport(context.Background()))
	assert.Equal(t, "deadbeef", ta.wallet.key)
	assert.Contains(t, ta.out.String(), "Wallet imported: 0x2222")
}
