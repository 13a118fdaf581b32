// Package cooldown keeps the global and per-command cooldown windows.
package cooldown

import (
	"sync"
	"time"
)

// Tracker stores, for the global window and for each command, the instant
// after which invocation is allowed again. Reads never mutate it.
type Tracker struct {
	now    func() time.Time
	global time.Duration

	mu        sync.RWMutex
	globalEnd time.Time
	ends      map[string]time.Time
}

type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTracker(global time.Duration, opts ...Option) *Tracker {
	if global < 0 {
		global = 0
	}
	t := &Tracker{
		now:    time.Now,
		global: global,
		ends:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Activate starts both the global window and the window of the named command.
func (t *Tracker) Activate(name string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.globalEnd = now.Add(t.global)
	t.ends[name] = now.Add(d)
}

func (t *Tracker) IsGloballyOnCooldown() bool {
	return t.now().Before(t.GlobalEnd())
}

func (t *Tracker) IsOnCooldown(name string) bool {
	return t.now().Before(t.End(name))
}

func (t *Tracker) GlobalEnd() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.globalEnd
}

// End returns the zero time for a command that never ran.
func (t *Tracker) End(name string) time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ends[name]
}

func (t *Tracker) GlobalRemaining() time.Duration {
	return remaining(t.now(), t.GlobalEnd())
}

func (t *Tracker) Remaining(name string) time.Duration {
	return remaining(t.now(), t.End(name))
}

func (t *Tracker) GlobalDuration() time.Duration {
	return t.global
}

func remaining(now, end time.Time) time.Duration {
	if !now.Before(end) {
		return 0
	}
	return end.Sub(now)
}
