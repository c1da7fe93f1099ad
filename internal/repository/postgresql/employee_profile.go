package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeProfileRepository struct {
	db *database.DB
}

// EmployeeProfileRepository reads attendance profiles and seeds them for development.
type EmployeeProfileRepository interface {
	employee.ProfileRepository
	Save(ctx context.Context, profile employee.Profile) error
}

func NewEmployeeProfileRepository(db *database.DB) EmployeeProfileRepository {
	return &employeeProfileRepository{db: db}
}

// GetProfile implements employee.ProfileRepository.
func (r *employeeProfileRepository) GetProfile(ctx context.Context, employeeID string) (employee.Profile, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, full_name, to_char(shift_start, 'HH24:MI'), to_char(shift_end, 'HH24:MI'),
			   COALESCE(timezone, '')
		FROM employees
		WHERE id = $1
		  AND deleted_at IS NULL
	`

	var (
		p          employee.Profile
		start, end string
	)
	err := q.QueryRow(ctx, query, employeeID).Scan(&p.ID, &p.Name, &start, &end, &p.Timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Profile{}, employee.ErrEmployeeNotFound
		}
		return employee.Profile{}, fmt.Errorf("failed to get employee profile: %w", err)
	}

	if p.ShiftStart, err = employee.ParseTimeOfDay(start); err != nil {
		return employee.Profile{}, err
	}
	if p.ShiftEnd, err = employee.ParseTimeOfDay(end); err != nil {
		return employee.Profile{}, err
	}
	if err := p.ResolveTimezone(); err != nil {
		return employee.Profile{}, err
	}

	slabQuery := `
		SELECT from_minute, to_minute, hourly_rate
		FROM overtime_slabs
		WHERE employee_id = $1
		ORDER BY from_minute ASC
	`

	rows, err := q.Query(ctx, slabQuery, employeeID)
	if err != nil {
		return employee.Profile{}, fmt.Errorf("failed to get overtime slabs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s employee.OvertimeSlab
		if err := rows.Scan(&s.FromMinute, &s.ToMinute, &s.HourlyRate); err != nil {
			return employee.Profile{}, fmt.Errorf("failed to scan overtime slab: %w", err)
		}
		p.OvertimeSlabs = append(p.OvertimeSlabs, s)
	}
	if err := rows.Err(); err != nil {
		return employee.Profile{}, fmt.Errorf("error iterating overtime slabs: %w", err)
	}

	return p, nil
}

// Save upserts the employee and replaces its overtime slabs.
func (r *employeeProfileRepository) Save(ctx context.Context, p employee.Profile) error {
	if err := p.ResolveTimezone(); err != nil {
		return err
	}
	return inTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		_, err := q.Exec(ctx, `
			INSERT INTO employees (id, full_name, shift_start, shift_end, timezone)
			VALUES ($1, $2, $3::time, $4::time, NULLIF($5, ''))
			ON CONFLICT (id) DO UPDATE
			SET full_name = EXCLUDED.full_name,
				shift_start = EXCLUDED.shift_start,
				shift_end = EXCLUDED.shift_end,
				timezone = EXCLUDED.timezone,
				deleted_at = NULL,
				updated_at = NOW()
		`, p.ID, p.Name, p.ShiftStart.String(), p.ShiftEnd.String(), p.Timezone)
		if err != nil {
			return fmt.Errorf("failed to save employee %s: %w", p.ID, err)
		}

		if _, err := q.Exec(ctx, `DELETE FROM overtime_slabs WHERE employee_id = $1`, p.ID); err != nil {
			return fmt.Errorf("failed to clear overtime slabs: %w", err)
		}

		for _, s := range p.OvertimeSlabs {
			_, err := q.Exec(ctx, `
				INSERT INTO overtime_slabs (employee_id, from_minute, to_minute, hourly_rate)
				VALUES ($1, $2, $3, $4)
			`, p.ID, s.FromMinute, s.ToMinute, s.HourlyRate)
			if err != nil {
				return fmt.Errorf("failed to insert overtime slab: %w", err)
			}
		}
		return nil
	})
}
