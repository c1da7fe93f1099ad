package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func seedEmployee(t *testing.T, setup *TestDatabaseSetup, id string) employee.Profile {
	t.Helper()

	profile := employee.Profile{
		ID:         id,
		Name:       "Employee " + id,
		ShiftStart: employee.TimeOfDay{Hour: 8},
		ShiftEnd:   employee.TimeOfDay{Hour: 17, Minute: 30},
		Timezone:   "Asia/Jakarta",
		OvertimeSlabs: []employee.OvertimeSlab{
			{FromMinute: 60, ToMinute: 120, HourlyRate: decimal.RequireFromString("3.5")},
			{FromMinute: 0, ToMinute: 60, HourlyRate: decimal.RequireFromString("2")},
		},
	}
	repo := postgresql.NewEmployeeProfileRepository(setup.DB)
	require.NoError(t, repo.Save(context.Background(), profile))
	return profile
}

func TestEmployeeProfileRepository_GetProfile(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	seedEmployee(t, setup, "emp-1")

	repo := postgresql.NewEmployeeProfileRepository(setup.DB)
	p, err := repo.GetProfile(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Employee emp-1", p.Name)
	assert.Equal(t, "08:00", p.ShiftStart.String())
	assert.Equal(t, "17:30", p.ShiftEnd.String())
	assert.Equal(t, "Asia/Jakarta", p.Timezone)
	require.Len(t, p.OvertimeSlabs, 2)
	assert.Equal(t, 0, p.OvertimeSlabs[0].FromMinute)
	assert.True(t, decimal.RequireFromString("3.5").Equal(p.OvertimeSlabs[1].HourlyRate))

	_, err = repo.GetProfile(ctx, "ghost")
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestDayRecordRepository_TransactionalUpsert(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	seedEmployee(t, setup, "emp-1")

	repo := postgresql.NewDayRecordRepository(setup.DB)
	key := attendance.DayKey{EmployeeID: "emp-1", Date: "2024-03-01"}
	date, err := key.Time()
	require.NoError(t, err)

	missing, err := repo.GetByEmployeeAndDate(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, missing)

	checkIn := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	stored, err := repo.TransactionalUpsert(ctx, key, func(current *attendance.DayRecord) (*attendance.DayRecord, error) {
		assert.Nil(t, current)
		return &attendance.DayRecord{
			ID:         uuid.Must(uuid.NewV7()).String(),
			EmployeeID: key.EmployeeID,
			Date:       date,
			CheckInAt:  &checkIn,
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, attendance.StateCheckedIn, stored.State())

	checkOut := checkIn.Add(10 * time.Hour)
	stored, err = repo.TransactionalUpsert(ctx, key, func(current *attendance.DayRecord) (*attendance.DayRecord, error) {
		require.NotNil(t, current)
		current.CheckOutAt = &checkOut
		current.WorkedMinutes = 600
		current.OvertimeMinutes = 30
		current.OvertimePay = decimal.RequireFromString("1.000")
		return current, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, attendance.StateCheckedOut, stored.State())
	assert.True(t, decimal.NewFromInt(1).Equal(stored.OvertimePay))

	got, err := repo.GetByEmployeeAndDate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", got.Date.Format(attendance.DateLayout))
	assert.Equal(t, 600, got.WorkedMinutes)
}

func TestDayRecordRepository_StaleVersionConflicts(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	seedEmployee(t, setup, "emp-1")

	repo := postgresql.NewDayRecordRepository(setup.DB)
	key := attendance.DayKey{EmployeeID: "emp-1", Date: "2024-03-01"}
	date, _ := key.Time()
	checkIn := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)

	_, err := repo.TransactionalUpsert(ctx, key, func(*attendance.DayRecord) (*attendance.DayRecord, error) {
		return &attendance.DayRecord{ID: uuid.Must(uuid.NewV7()).String(), EmployeeID: "emp-1", Date: date, CheckInAt: &checkIn}, nil
	})
	require.NoError(t, err)

	_, err = repo.TransactionalUpsert(ctx, key, func(current *attendance.DayRecord) (*attendance.DayRecord, error) {
		current.Version = 99
		return current, nil
	})
	assert.ErrorIs(t, err, attendance.ErrVersionConflict)
}

func TestDayRecordRepository_ConcurrentUpsertsSerialize(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	seedEmployee(t, setup, "emp-1")

	repo := postgresql.NewDayRecordRepository(setup.DB)
	key := attendance.DayKey{EmployeeID: "emp-1", Date: "2024-03-01"}
	date, _ := key.Time()

	var g errgroup.Group
	for range 10 {
		g.Go(func() error {
			_, err := repo.TransactionalUpsert(ctx, key, func(current *attendance.DayRecord) (*attendance.DayRecord, error) {
				if current == nil {
					in := time.Now().UTC()
					return &attendance.DayRecord{ID: uuid.Must(uuid.NewV7()).String(), EmployeeID: "emp-1", Date: date, CheckInAt: &in}, nil
				}
				current.WorkedMinutes++
				return current, nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := repo.GetByEmployeeAndDate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Version)
	assert.Equal(t, 9, got.WorkedMinutes)
}

func TestMonthlySummaryRepository_IncrementCounters(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	seedEmployee(t, setup, "emp-1")

	repo := postgresql.NewMonthlySummaryRepository(setup.DB)
	key := attendance.MonthKey{EmployeeID: "emp-1", YearMonth: "2024-03"}

	var g errgroup.Group
	for range 5 {
		g.Go(func() error {
			return repo.IncrementCounters(ctx, key, attendance.SummaryDelta{
				PresentDays:     1,
				WorkedMinutes:   570,
				OvertimeMinutes: 45,
				OvertimePay:     decimal.RequireFromString("1.5"),
			})
		})
	}
	require.NoError(t, g.Wait())

	s, err := repo.GetByEmployeeAndMonth(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 5, s.PresentDays)
	assert.Equal(t, 2850, s.WorkedMinutes)
	assert.Equal(t, 225, s.OvertimeMinutes)
	assert.True(t, decimal.RequireFromString("7.5").Equal(s.OvertimePay))

	missing, err := repo.GetByEmployeeAndMonth(ctx, attendance.MonthKey{EmployeeID: "emp-1", YearMonth: "2024-04"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTransactor_RollsBackDayRecordWhenFoldFails(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	seedEmployee(t, setup, "emp-1")

	tx := postgresql.NewTransactor(setup.DB)
	days := postgresql.NewDayRecordRepository(setup.DB)
	summaries := postgresql.NewMonthlySummaryRepository(setup.DB)

	key := attendance.DayKey{EmployeeID: "emp-1", Date: "2024-03-01"}
	date, _ := key.Time()
	checkIn := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := days.TransactionalUpsert(ctx, key, func(*attendance.DayRecord) (*attendance.DayRecord, error) {
			return &attendance.DayRecord{ID: uuid.Must(uuid.NewV7()).String(), EmployeeID: "emp-1", Date: date, CheckInAt: &checkIn}, nil
		})
		if err != nil {
			return err
		}
		// Unknown employee violates the foreign key and aborts the whole transaction.
		return summaries.IncrementCounters(ctx, attendance.MonthKey{EmployeeID: "ghost", YearMonth: "2024-03"}, attendance.SummaryDelta{PresentDays: 1})
	})
	require.Error(t, err)

	got, err := days.GetByEmployeeAndDate(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListenProfileChanges_InvalidatesOnSave(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- postgresql.ListenProfileChanges(ctx, setup.DB, func(employeeID string) {
			changed <- employeeID
		})
	}()

	// Saving before LISTEN is active would drop the notification; retry until one arrives.
	require.Eventually(t, func() bool {
		seedEmployee(t, setup, "emp-1")
		select {
		case id := <-changed:
			return id == "emp-1"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
