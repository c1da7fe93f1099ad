package attendance

import (
	"crypto/sha256"
	"sync"
	"time"
)

// Debouncer drops repeats of the same payload seen within window. Cameras report the
// same QR code many times per second while it stays in frame.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[[sha256.Size]byte]time.Time
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		seen:   make(map[[sha256.Size]byte]time.Time),
	}
}

// Allow reports whether payload should be processed and, if so, starts its window.
func (d *Debouncer) Allow(payload string, now time.Time) bool {
	if d == nil || d.window <= 0 {
		return true
	}
	key := sha256.Sum256([]byte(payload))

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[key] = now
	return true
}

// Forget reopens payload immediately, used when processing failed transiently.
func (d *Debouncer) Forget(payload string) {
	if d == nil {
		return
	}
	key := sha256.Sum256([]byte(payload))

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}

// Purge drops entries whose window has passed and returns how many were removed.
func (d *Debouncer) Purge(now time.Time) int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, last := range d.seen {
		if now.Sub(last) >= d.window {
			delete(d.seen, key)
			removed++
		}
	}
	return removed
}
