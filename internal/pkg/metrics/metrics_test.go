package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordOutcomeConcurrently(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordOutcome("CHECK_IN_RECORDED")
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), c.Outcome("CHECK_IN_RECORDED"))
	assert.Equal(t, uint64(0), c.Outcome("ALREADY_CHECKED_IN"))
}

func TestCollector_Snapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(503, 30*time.Millisecond)
	c.RecordOutcome("TOKEN_EXPIRED")

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, float64(20), snap["avgDurationMs"])
	assert.Equal(t, map[string]uint64{"TOKEN_EXPIRED": 1}, snap["scanOutcomes"])
}
