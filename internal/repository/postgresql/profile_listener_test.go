package postgresql

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_RetriesAndInvalidatesOnReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts, flushes atomic.Int32
	listen := func(ctx context.Context) error {
		if attempts.Add(1) <= 2 {
			return errors.New("connection reset")
		}
		<-ctx.Done()
		return nil
	}

	done := make(chan struct{})
	go func() {
		watch(ctx, listen, func() { flushes.Add(1) }, ListenerBackoff{Initial: time.Millisecond, Max: 4 * time.Millisecond})
		close(done)
	}()

	require.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), flushes.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assert.Equal(t, int32(3), attempts.Load())
}

func TestWatch_StopsDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var attempts atomic.Int32
	done := make(chan struct{})
	go func() {
		watch(ctx, func(context.Context) error {
			attempts.Add(1)
			return errors.New("refused")
		}, func() {}, ListenerBackoff{Initial: time.Hour, Max: time.Hour})
		close(done)
	}()

	require.Eventually(t, func() bool { return attempts.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop while backing off")
	}
	assert.Equal(t, int32(1), attempts.Load())
}
