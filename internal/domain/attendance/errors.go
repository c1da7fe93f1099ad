package attendance

import "errors"

// Attendance domain errors
var (
	ErrInvalidMode             = errors.New("mode must be check-in or check-out")
	ErrScanDebounced           = errors.New("duplicate scan ignored")
	ErrDayRecordNotFound       = errors.New("attendance record not found")
	ErrMonthlySummaryNotFound  = errors.New("monthly summary not found")
	ErrVersionConflict         = errors.New("attendance record was modified concurrently")
	ErrInvalidCheckOutSequence = errors.New("check-out requires an earlier check-in")

	// ErrStoreUnavailable marks a transient failure; the whole scan may be retried.
	ErrStoreUnavailable = errors.New("attendance store unavailable")
)
