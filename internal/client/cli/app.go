package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/client/report"
	"github.com/dmitrijs2005/moodkeeper/internal/client/services"
	"github.com/dmitrijs2005/moodkeeper/internal/client/session"
	"github.com/dmitrijs2005/moodkeeper/internal/client/stats"
	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
	"github.com/dmitrijs2005/moodkeeper/internal/client/store"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Wallet is the part of session.Manager the REPL drives.
type Wallet interface {
	KeystorePath() string
	CreateWallet(ctx context.Context, password []byte) (string, error)
	ImportWallet(ctx context.Context, hexKey string, password []byte) (string, error)
	Connect(ctx context.Context, password []byte) (string, error)
	Disconnect(ctx context.Context)
	Connected() bool
	Account() string
	LastAccount(ctx context.Context) (string, error)
}

// Prober answers whether the ledger is reachable.
type Prober interface {
	IsAvailable(ctx context.Context) (bool, error)
}

// HistoryStore is the durable activity history.
type HistoryStore interface {
	List(ctx context.Context, limit int) ([]status.Activity, error)
}

// Deps are the collaborators of the REPL. Archive, Prober and Exporters may
// be empty.
type Deps struct {
	Wallet    Wallet
	Service   services.SentimentService
	Store     *store.EntryStore
	Status    *status.Tracker
	Activity  *status.ActivityLog
	Archive   HistoryStore
	Prober    Prober
	Exporters map[string]report.Exporter

	Reader *bufio.Reader
	Out    io.Writer
	Log    logging.Logger

	OnlineCheckInterval time.Duration
}

type App struct {
	Deps

	form  models.CreateForm
	query string
	team  string

	mu   sync.RWMutex
	mode Mode

	now func() time.Time
}

func NewApp(d Deps) *App {
	if d.Reader == nil {
		d.Reader = bufio.NewReader(os.Stdin)
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	d.Log = d.Log.With("module", "cli")

	a := &App{Deps: d, team: stats.AllTeams, now: time.Now}
	if d.Status != nil {
		d.Status.OnChange(a.printStatus)
	}
	return a
}

// PromptApprover asks on w before every signature.
func PromptApprover(reader *bufio.Reader, w io.Writer) session.Approver {
	return func(_ context.Context, account, action string) (bool, error) {
		return Confirm(reader, fmt.Sprintf("Sign %q as %s?", action, account), w)
	}
}

func (a *App) printStatus(s status.Status) {
	if s.Kind == status.Idle {
		return
	}
	printlnFn(fmt.Sprintf("[%s] %s", s.Kind, s.Message))
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.Log.Info(ctx, "switched mode", "mode", mode)
	}
}

func (a *App) isConnected() bool {
	return a.Wallet.Connected()
}

// Run starts the online watcher and blocks in the REPL until the user exits
// or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if last, err := a.Wallet.LastAccount(ctx); err == nil && last != "" {
		printlnFn("Last connected account:", last)
	}
	if a.Store != nil {
		if err := a.Store.LoadCached(ctx); err != nil {
			a.Log.Warn(ctx, "cached snapshot not loaded", "error", err)
		}
	}

	if a.Prober != nil && a.OnlineCheckInterval > 0 {
		go a.StartOnlineStatusWatcher(ctx, a.OnlineCheckInterval)
	}

	printlnFn("Welcome to MoodKeeper CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.Reader)
}

// StartOnlineStatusWatcher polls the ledger every interval and flips the
// mode between online and offline.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	ok, err := a.Prober.IsAvailable(pctx)
	cancel()

	if err != nil || !ok {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

func (a *App) getStatus() string {
	var parts []string
	if acc := a.Wallet.Account(); acc != "" {
		parts = append(parts, shortAddress(acc))
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if a.Store != nil && a.Store.Refreshing() {
		parts = append(parts, "refreshing")
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
