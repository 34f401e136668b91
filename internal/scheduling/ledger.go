package scheduling

import (
	"sort"
	"sync"
	"time"
)

// Ledger records booked events by idempotency key. At most one active event
// exists per key; cancelled events stay as history.
type Ledger struct {
	mu     sync.RWMutex
	events map[string][]*Event
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{events: make(map[string][]*Event)}
}

// Active returns the non-cancelled event for key.
func (l *Ledger) Active(key string) (*Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.activeLocked(key)
}

func (l *Ledger) activeLocked(key string) (*Event, bool) {
	history := l.events[key]
	if n := len(history); n > 0 && history[n-1].Active() {
		return history[n-1].clone(), true
	}
	return nil, false
}

// Generation returns how many events were ever booked for key.
func (l *Ledger) Generation(key string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events[key])
}

// Record stores ev. It returns false, leaving the ledger unchanged, when an
// active event already exists for the key.
func (l *Ledger) Record(ev *Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.activeLocked(ev.IdempotencyKey); ok {
		return false
	}
	l.events[ev.IdempotencyKey] = append(l.events[ev.IdempotencyKey], ev.clone())
	return true
}

// Cancel marks the active event for key as cancelled.
func (l *Ledger) Cancel(key string, at time.Time) (*Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	history := l.events[key]
	n := len(history)
	if n == 0 || !history[n-1].Active() {
		return nil, false
	}
	history[n-1].Status = StatusCancelled
	history[n-1].CancelledAt = at
	return history[n-1].clone(), true
}

// List returns the active events ordered by start time.
func (l *Ledger) List() []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Event, 0, len(l.events))
	for key := range l.events {
		if ev, ok := l.activeLocked(key); ok {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].IdempotencyKey < out[j].IdempotencyKey
	})
	return out
}
