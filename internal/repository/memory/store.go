package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
)

// Store keeps day records and monthly summaries in process memory. Writes to one day
// key are serialized by a per-key lock; different keys proceed in parallel. A key lock
// lives only while some upsert holds or waits for it.
type Store struct {
	mu        sync.RWMutex
	days      map[attendance.DayKey]*attendance.DayRecord
	summaries map[attendance.MonthKey]*attendance.MonthlySummary

	locksMu sync.Mutex
	locks   map[attendance.DayKey]*keyLock

	now func() time.Time
}

var (
	_ attendance.DayRecordRepository      = (*Store)(nil)
	_ attendance.MonthlySummaryRepository = (*Store)(nil)
	_ attendance.Transactor               = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		days:      make(map[attendance.DayKey]*attendance.DayRecord),
		summaries: make(map[attendance.MonthKey]*attendance.MonthlySummary),
		locks:     make(map[attendance.DayKey]*keyLock),
		now:       time.Now,
	}
}

// WithinTransaction runs fn directly. The store has no rollback, so IncrementCounters
// never fails once a day upsert has been written.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Store) lockKey(key attendance.DayKey) *keyLock {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return l
}

func (s *Store) unlockKey(key attendance.DayKey, l *keyLock) {
	l.mu.Unlock()

	s.locksMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
	s.locksMu.Unlock()
}

func (s *Store) TransactionalUpsert(ctx context.Context, key attendance.DayKey, fn attendance.UpdateFunc) (*attendance.DayRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := s.lockKey(key)
	defer s.unlockKey(key, l)

	s.mu.RLock()
	current := s.days[key].Clone()
	s.mu.RUnlock()

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	if current != nil && next.Version != current.Version {
		return nil, fmt.Errorf("upsert %s: %w", key, attendance.ErrVersionConflict)
	}

	stored := next.Clone()
	now := s.now().UTC()
	if current == nil {
		stored.CreatedAt = now
	}
	stored.Version++
	stored.UpdatedAt = now

	s.mu.Lock()
	s.days[key] = stored
	s.mu.Unlock()

	return stored.Clone(), nil
}

func (s *Store) GetByEmployeeAndDate(ctx context.Context, key attendance.DayKey) (*attendance.DayRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.days[key].Clone(), nil
}

func (s *Store) IncrementCounters(ctx context.Context, key attendance.MonthKey, delta attendance.SummaryDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, ok := s.summaries[key]
	if !ok {
		summary = &attendance.MonthlySummary{EmployeeID: key.EmployeeID, YearMonth: key.YearMonth}
		s.summaries[key] = summary
	}
	summary.PresentDays += delta.PresentDays
	summary.WorkedMinutes += delta.WorkedMinutes
	summary.OvertimeMinutes += delta.OvertimeMinutes
	summary.OvertimePay = summary.OvertimePay.Add(delta.OvertimePay)
	summary.LastUpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) GetByEmployeeAndMonth(ctx context.Context, key attendance.MonthKey) (*attendance.MonthlySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[key]
	if !ok {
		return nil, nil
	}
	c := *summary
	return &c, nil
}
