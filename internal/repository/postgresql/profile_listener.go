package postgresql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/pkg/database"
)

// ProfileChangedChannel is notified with the employee id whenever an employee row or
// one of its overtime slabs changes.
const ProfileChangedChannel = "employee_profile_changed"

// ListenProfileChanges calls invalidate for every changed employee until ctx is done.
// It holds one pooled connection for its lifetime.
func ListenProfileChanges(ctx context.Context, db *database.DB, invalidate func(employeeID string)) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ProfileChangedChannel); err != nil {
		return fmt.Errorf("listen %s: %w", ProfileChangedChannel, err)
	}
	slog.Info("Listening for employee profile changes", "channel", ProfileChangedChannel)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for %s: %w", ProfileChangedChannel, err)
		}
		slog.Debug("Employee profile changed", "employee_id", notification.Payload)
		invalidate(notification.Payload)
	}
}

// ListenerBackoff bounds the reconnect delay of WatchProfileChanges.
type ListenerBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

var DefaultListenerBackoff = ListenerBackoff{Initial: time.Second, Max: 30 * time.Second}

// WatchProfileChanges keeps a profile change listener running until ctx is done,
// reconnecting with exponential backoff. Notifications may be missed while disconnected,
// so invalidateAll runs before every reconnect.
func WatchProfileChanges(ctx context.Context, db *database.DB, invalidate func(employeeID string), invalidateAll func(), backoff ListenerBackoff) {
	watch(ctx, func(ctx context.Context) error {
		return ListenProfileChanges(ctx, db, invalidate)
	}, invalidateAll, backoff)
}

func watch(ctx context.Context, listen func(context.Context) error, invalidateAll func(), backoff ListenerBackoff) {
	delay := backoff.Initial
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			invalidateAll()
		}

		started := time.Now()
		err := listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("listener returned")
		}
		if time.Since(started) > backoff.Max {
			delay = backoff.Initial
		}
		slog.Warn("Profile change listener stopped, retrying", "error", err, "retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = min(delay*2, backoff.Max)
	}
}
