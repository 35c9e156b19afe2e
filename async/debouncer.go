package async

import (
	"sync"
	"time"
)

// Debouncer suppresses triggers that arrive within a fixed interval of the
// last accepted one. It is safe for concurrent use.
type Debouncer struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewDebouncer returns a debouncer accepting at most one trigger per interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Try reports whether the trigger is accepted. A rejected trigger does not
// extend the suppression window.
func (d *Debouncer) Try() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if now.Sub(d.last) < d.interval {
		return false
	}
	d.last = now
	return true
}

// Reset clears the suppression window so the next Try is accepted.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = time.Time{}
}
