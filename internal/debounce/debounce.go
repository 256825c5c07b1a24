// Package debounce suppresses repeated gesture labels per identity.
package debounce

import (
	"sync"
	"time"

	"github.com/ayusman/gesturecast/internal/gesture"
)

type entry struct {
	label    gesture.Label
	lastEmit time.Time
}

// Filter remembers the last accepted label per identity and rejects an
// identical label that arrives before the window has elapsed. A different
// label is always accepted.
type Filter struct {
	window time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a Filter with the given suppression window.
func New(window time.Duration) *Filter {
	return &Filter{
		window:  window,
		entries: make(map[string]*entry),
	}
}

// ShouldEmit reports whether label may be emitted for identity at now. An
// accepted label becomes the identity's new reference point; a suppressed one
// leaves the state untouched.
func (f *Filter) ShouldEmit(identity string, label gesture.Label, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[identity]
	if !ok {
		f.entries[identity] = &entry{label: label, lastEmit: now}
		return true
	}

	if e.label == label && now.Sub(e.lastEmit) < f.window {
		return false
	}

	e.label = label
	e.lastEmit = now
	return true
}

// Forget drops the state for identity.
func (f *Filter) Forget(identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, identity)
}

// Len returns the number of tracked identities.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// Window returns the suppression window.
func (f *Filter) Window() time.Duration {
	return f.window
}
