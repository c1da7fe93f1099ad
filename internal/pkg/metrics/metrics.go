package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector keeps process-local counters for scans and HTTP requests.
type Collector struct {
	totalRequests   atomic.Uint64
	errorRequests   atomic.Uint64
	totalDurationMs atomic.Uint64

	mu       sync.RWMutex
	outcomes map[string]*atomic.Uint64
}

func New() *Collector {
	return &Collector{outcomes: make(map[string]*atomic.Uint64)}
}

// Record counts one HTTP request.
func (c *Collector) Record(status int, duration time.Duration) {
	c.totalRequests.Add(1)
	if status >= 500 {
		c.errorRequests.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
}

// RecordOutcome counts one scan result, either a state machine outcome or a rejection code.
func (c *Collector) RecordOutcome(outcome string) {
	c.mu.RLock()
	counter, ok := c.outcomes[outcome]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		if counter, ok = c.outcomes[outcome]; !ok {
			counter = new(atomic.Uint64)
			c.outcomes[outcome] = counter
		}
		c.mu.Unlock()
	}
	counter.Add(1)
}

func (c *Collector) Outcome(outcome string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if counter, ok := c.outcomes[outcome]; ok {
		return counter.Load()
	}
	return 0
}

func (c *Collector) Snapshot() map[string]any {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.RLock()
	outcomes := make(map[string]uint64, len(c.outcomes))
	for name, counter := range c.outcomes {
		outcomes[name] = counter.Load()
	}
	c.mu.RUnlock()

	return map[string]any{
		"requestsTotal":   total,
		"errorsTotal":     c.errorRequests.Load(),
		"avgDurationMs":   avg,
		"totalDurationMs": totalMs,
		"scanOutcomes":    outcomes,
	}
}
