package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const dayRecordColumns = `
	id, employee_id, date, check_in_at, check_out_at,
	worked_minutes, overtime_minutes, overtime_pay, version,
	created_at, updated_at`

type dayRecordRepository struct {
	db *database.DB
}

func NewDayRecordRepository(db *database.DB) attendance.DayRecordRepository {
	return &dayRecordRepository{db: db}
}

// TransactionalUpsert implements attendance.DayRecordRepository. Writers of the same key
// queue on a transaction-scoped advisory lock; the version check catches writers that skip it.
func (r *dayRecordRepository) TransactionalUpsert(ctx context.Context, key attendance.DayKey, fn attendance.UpdateFunc) (*attendance.DayRecord, error) {
	var stored *attendance.DayRecord

	err := inTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "day:"+key.String()); err != nil {
			return fmt.Errorf("failed to lock day record %s: %w", key, err)
		}

		current, err := r.get(ctx, q, key)
		if err != nil {
			return err
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			stored = current
			return nil
		}

		if current == nil {
			stored, err = r.insert(ctx, q, next)
		} else {
			stored, err = r.update(ctx, q, next)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// GetByEmployeeAndDate implements attendance.DayRecordRepository.
func (r *dayRecordRepository) GetByEmployeeAndDate(ctx context.Context, key attendance.DayKey) (*attendance.DayRecord, error) {
	return r.get(ctx, GetQuerier(ctx, r.db), key)
}

func (r *dayRecordRepository) get(ctx context.Context, q database.Querier, key attendance.DayKey) (*attendance.DayRecord, error) {
	query := `SELECT ` + dayRecordColumns + `
		FROM day_attendance_records
		WHERE employee_id = $1
		  AND date = $2
	`

	record, err := scanDayRecord(q.QueryRow(ctx, query, key.EmployeeID, key.Date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get day record %s: %w", key, err)
	}

	return record, nil
}

func (r *dayRecordRepository) insert(ctx context.Context, q database.Querier, rec *attendance.DayRecord) (*attendance.DayRecord, error) {
	query := `
		INSERT INTO day_attendance_records (
			id, employee_id, date, check_in_at, check_out_at,
			worked_minutes, overtime_minutes, overtime_pay, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, 1
		) RETURNING ` + dayRecordColumns

	stored, err := scanDayRecord(q.QueryRow(ctx, query,
		rec.ID,
		rec.EmployeeID,
		rec.Date,
		rec.CheckInAt,
		rec.CheckOutAt,
		rec.WorkedMinutes,
		rec.OvertimeMinutes,
		rec.OvertimePay,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("insert day record %s/%s: %w", rec.EmployeeID, rec.Date.Format(attendance.DateLayout), attendance.ErrVersionConflict)
		}
		return nil, fmt.Errorf("failed to insert day record: %w", err)
	}

	return stored, nil
}

func (r *dayRecordRepository) update(ctx context.Context, q database.Querier, rec *attendance.DayRecord) (*attendance.DayRecord, error) {
	query := `
		UPDATE day_attendance_records
		SET check_in_at = $2,
			check_out_at = $3,
			worked_minutes = $4,
			overtime_minutes = $5,
			overtime_pay = $6,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1
		  AND version = $7
		RETURNING ` + dayRecordColumns

	stored, err := scanDayRecord(q.QueryRow(ctx, query,
		rec.ID,
		rec.CheckInAt,
		rec.CheckOutAt,
		rec.WorkedMinutes,
		rec.OvertimeMinutes,
		rec.OvertimePay,
		rec.Version,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update day record %s: %w", rec.ID, attendance.ErrVersionConflict)
		}
		return nil, fmt.Errorf("failed to update day record: %w", err)
	}

	return stored, nil
}

func scanDayRecord(row pgx.Row) (*attendance.DayRecord, error) {
	var rec attendance.DayRecord
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.Date, &rec.CheckInAt, &rec.CheckOutAt,
		&rec.WorkedMinutes, &rec.OvertimeMinutes, &rec.OvertimePay, &rec.Version,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
