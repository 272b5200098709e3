package status

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/google/uuid"
)

const DefaultWindow = 5

// Activity is one line of the activity log.
type Activity struct {
	RequestID string    `json:"request_id"`
	Account   string    `json:"account"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// Sink receives every appended activity, e.g. for durable storage.
type Sink interface {
	Record(ctx context.Context, a Activity) error
}

// ActivityLog is append-only. It keeps everything but presents only the
// last window entries.
type ActivityLog struct {
	mu     sync.Mutex
	items  []Activity
	window int
	sinks  []Sink
	log    logging.Logger
	now    func() time.Time
}

// NewActivityLog keeps the last window messages in memory (DefaultWindow
// when window is not positive) and forwards each append to sinks.
func NewActivityLog(window int, log logging.Logger, sinks ...Sink) *ActivityLog {
	if window <= 0 {
		window = DefaultWindow
	}
	if log == nil {
		log = logging.Nop()
	}
	return &ActivityLog{window: window, sinks: sinks, log: log, now: time.Now}
}

// AddSink attaches another sink for future appends.
func (l *ActivityLog) AddSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Append records message for account and forwards it to every sink. Sink
// failures are logged and otherwise ignored.
func (l *ActivityLog) Append(ctx context.Context, account, message string) Activity {
	a := Activity{
		RequestID: uuid.NewString(),
		Account:   account,
		Message:   message,
		At:        l.now().UTC(),
	}

	l.mu.Lock()
	l.items = append(l.items, a)
	sinks := append([]Sink(nil), l.sinks...)
	l.mu.Unlock()

	for _, s := range sinks {
		if err := s.Record(ctx, a); err != nil {
			l.log.Warn(ctx, "activity sink failed", "request_id", a.RequestID, "error", err)
		}
	}
	return a
}

// Recent returns up to window most recent messages, oldest first.
func (l *ActivityLog) Recent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := len(l.items) - l.window
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(l.items)-start)
	for _, a := range l.items[start:] {
		out = append(out, a.Message)
	}
	return out
}

// All returns a copy of the full in-memory history.
func (l *ActivityLog) All() []Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Activity(nil), l.items...)
}

// Len counts every message ever appended, not only the visible window.
func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
