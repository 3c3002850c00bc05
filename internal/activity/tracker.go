package activity

import (
	"log/slog"
	"sync"
	"time"
)

// Reporter receives request lifecycle events. *Tracker implements it.
type Reporter interface {
	MarkSyncing()
	MarkSuccess()
	MarkError()
}

var _ Reporter = (*Tracker)(nil)

// Change describes a status transition delivered to observers.
type Change struct {
	From Status
	To   Status
	Auto bool // true when produced by a revert timer
}

type subscription struct {
	id       uint64
	observer Observer
}

// Tracker holds the current activity status and its pending revert timer.
// The zero value is not usable; construct with New.
type Tracker struct {
	// notifyMu serialises transitions end to end so observers see changes in order.
	notifyMu sync.Mutex

	mu     sync.Mutex
	status Status
	revert *time.Timer
	gen    uint64 // bumped on every transition; timers carry the gen they were armed with
	subs   []subscription
	nextID uint64

	logger *slog.Logger
}

// New creates a Tracker in the Idle state.
func New(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger}
}

// MarkSyncing sets Syncing. It stays until another Mark call.
func (t *Tracker) MarkSyncing() { t.transition(Syncing) }

// MarkSuccess sets Success and reverts to Idle after SuccessRevertDelay.
func (t *Tracker) MarkSuccess() { t.transition(Success) }

// MarkError sets Error and reverts to Idle after ErrorRevertDelay.
func (t *Tracker) MarkError() { t.transition(Error) }

// MarkIdle sets Idle immediately.
func (t *Tracker) MarkIdle() { t.transition(Idle) }

// Status returns the current status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Subscribe registers o for status changes. The returned func removes it and
// is safe to call more than once.
func (t *Tracker) Subscribe(o Observer) (cancel func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription{id: id, observer: o})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.unsubscribe(id) })
	}
}

// Stop cancels any pending revert. The current status is left as is.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.stopTimerLocked()
}

func (t *Tracker) transition(to Status) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	from := t.status
	t.gen++
	t.stopTimerLocked()
	t.status = to
	if d := to.RevertDelay(); d > 0 {
		gen := t.gen
		t.revert = time.AfterFunc(d, func() { t.autoRevert(gen) })
	}
	observers := t.observersLocked()
	t.mu.Unlock()

	if from != to {
		t.notify(observers, Change{From: from, To: to})
	}
}

func (t *Tracker) autoRevert(gen uint64) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if gen != t.gen {
		// superseded by a later transition or Stop
		t.mu.Unlock()
		return
	}
	from := t.status
	t.status = Idle
	t.revert = nil
	observers := t.observersLocked()
	t.mu.Unlock()

	if from != Idle {
		t.notify(observers, Change{From: from, To: Idle, Auto: true})
	}
}

func (t *Tracker) notify(observers []Observer, c Change) {
	t.logger.Debug("activity status changed",
		"from", c.From.String(),
		"to", c.To.String(),
		"auto", c.Auto,
	)
	for _, o := range observers {
		o.OnChange(c)
	}
}

func (t *Tracker) stopTimerLocked() {
	if t.revert != nil {
		t.revert.Stop()
		t.revert = nil
	}
}

func (t *Tracker) observersLocked() []Observer {
	if len(t.subs) == 0 {
		return nil
	}
	out := make([]Observer, len(t.subs))
	for i, s := range t.subs {
		out[i] = s.observer
	}
	return out
}

func (t *Tracker) unsubscribe(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

// pendingRevert reports whether a revert timer is armed.
func (t *Tracker) pendingRevert() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revert != nil
}
