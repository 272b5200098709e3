// Package status holds the process-wide transaction status indicator and
// the activity log. Both are owned by the caller and passed in explicitly.
package status

import (
	"sync"
	"time"
)

type Kind string

const (
	Idle    Kind = "idle"
	Pending Kind = "pending"
	Success Kind = "success"
	Error   Kind = "error"
)

// Status is what the status line shows. Idle is not shown.
type Status struct {
	Kind    Kind
	Message string
}

const (
	DefaultSuccessTTL = 2 * time.Second
	DefaultErrorTTL   = 3 * time.Second
)

type timer interface {
	Stop() bool
}

// Tracker holds a single status. Every push replaces the previous status
// and cancels its pending dismissal; success and error revert to idle after
// their TTL, pending stays until replaced.
type Tracker struct {
	mu         sync.Mutex
	current    Status
	gen        uint64
	dismiss    timer
	successTTL time.Duration
	errorTTL   time.Duration
	onChange   func(Status)

	afterFunc func(d time.Duration, f func()) timer
}

func NewTracker(successTTL, errorTTL time.Duration) *Tracker {
	return &Tracker{
		current:    Status{Kind: Idle},
		successTTL: successTTL,
		errorTTL:   errorTTL,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
}

// OnChange registers fn to be called after every transition, including
// automatic dismissal. fn runs outside the tracker lock.
func (t *Tracker) OnChange(fn func(Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

func (t *Tracker) Pending(msg string) { t.push(Status{Kind: Pending, Message: msg}) }
func (t *Tracker) Success(msg string) { t.push(Status{Kind: Success, Message: msg}) }
func (t *Tracker) Error(msg string)   { t.push(Status{Kind: Error, Message: msg}) }

// Clear returns to idle immediately.
func (t *Tracker) Clear() { t.push(Status{Kind: Idle}) }

// Current returns the visible status, Idle once its TTL has run out.
func (t *Tracker) Current() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Visible reports whether a status should be rendered.
func (t *Tracker) Visible() bool {
	return t.Current().Kind != Idle
}

func (t *Tracker) push(s Status) {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	if t.dismiss != nil {
		t.dismiss.Stop()
		t.dismiss = nil
	}
	t.current = s

	var ttl time.Duration
	switch s.Kind {
	case Success:
		ttl = t.successTTL
	case Error:
		ttl = t.errorTTL
	}
	if ttl > 0 {
		t.dismiss = t.afterFunc(ttl, func() { t.expire(gen) })
	}
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// expire is a no-op when a newer push superseded gen.
func (t *Tracker) expire(gen uint64) {
	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.current = Status{Kind: Idle}
	t.dismiss = nil
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(Status{Kind: Idle})
	}
}
