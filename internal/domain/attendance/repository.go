package attendance

import "context"

// UpdateFunc receives the current day record (nil when absent) and returns the record to
// persist, or nil to leave storage untouched.
type UpdateFunc func(current *DayRecord) (*DayRecord, error)

// DayRecordRepository owns day records. TransactionalUpsert must run the read, the
// decision and the write atomically with respect to other calls for the same key.
type DayRecordRepository interface {
	// TransactionalUpsert returns the stored record after fn ran; nil when none exists.
	TransactionalUpsert(ctx context.Context, key DayKey, fn UpdateFunc) (*DayRecord, error)

	// GetByEmployeeAndDate returns nil, nil when no record exists.
	GetByEmployeeAndDate(ctx context.Context, key DayKey) (*DayRecord, error)
}

// MonthlySummaryRepository owns monthly summaries. IncrementCounters adds delta in
// place, creating a zeroed summary first when absent.
type MonthlySummaryRepository interface {
	IncrementCounters(ctx context.Context, key MonthKey, delta SummaryDelta) error

	// GetByEmployeeAndMonth returns nil, nil when no summary exists.
	GetByEmployeeAndMonth(ctx context.Context, key MonthKey) (*MonthlySummary, error)
}

// Transactor runs fn so that every repository call made with the ctx it receives
// commits or rolls back together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
