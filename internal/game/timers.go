// internal/game/timers.go
package game

import (
	"strings"
	"sync"
	"time"
)

// TimerTable tracks cancellable scheduled tasks by key. Scheduling a key that
// already has a live timer supersedes the old one, so at most one timer is
// ever live per key. A superseded or cancelled timer's callback never runs.
type TimerTable struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerTable returns an empty timer table.
func NewTimerTable() *TimerTable {
	return &TimerTable{
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms fn to run after d, replacing any live timer for key.
func (t *TimerTable) Schedule(key string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[key]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		// A timer that fired concurrently with being replaced is stale;
		// only the current registration may run.
		t.mu.Lock()
		current := t.timers[key] == timer
		if current {
			delete(t.timers, key)
		}
		t.mu.Unlock()
		if current {
			fn()
		}
	})
	t.timers[key] = timer
}

// Cancel stops the timer for key, if any. Reports whether one was live.
func (t *TimerTable) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	timer, ok := t.timers[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(t.timers, key)
	return true
}

// CancelPrefix stops every timer whose key starts with prefix and returns how
// many were cancelled. Used to tear down all timers for a room transitively.
func (t *TimerTable) CancelPrefix(prefix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key, timer := range t.timers {
		if strings.HasPrefix(key, prefix) {
			timer.Stop()
			delete(t.timers, key)
			n++
		}
	}
	return n
}

// Live reports whether a timer is currently armed for key.
func (t *TimerTable) Live(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[key]
	return ok
}

// Len returns the number of live timers.
func (t *TimerTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}
