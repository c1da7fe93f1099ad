package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type monthlySummaryRepository struct {
	db *database.DB
}

func NewMonthlySummaryRepository(db *database.DB) attendance.MonthlySummaryRepository {
	return &monthlySummaryRepository{db: db}
}

// IncrementCounters implements attendance.MonthlySummaryRepository.
func (r *monthlySummaryRepository) IncrementCounters(ctx context.Context, key attendance.MonthKey, delta attendance.SummaryDelta) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO monthly_summaries (
			employee_id, year_month, present_days, worked_minutes,
			overtime_minutes, overtime_pay, last_updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW()
		)
		ON CONFLICT (employee_id, year_month) DO UPDATE
		SET present_days = monthly_summaries.present_days + EXCLUDED.present_days,
			worked_minutes = monthly_summaries.worked_minutes + EXCLUDED.worked_minutes,
			overtime_minutes = monthly_summaries.overtime_minutes + EXCLUDED.overtime_minutes,
			overtime_pay = monthly_summaries.overtime_pay + EXCLUDED.overtime_pay,
			last_updated_at = NOW()
	`

	_, err := q.Exec(ctx, query,
		key.EmployeeID,
		key.YearMonth,
		delta.PresentDays,
		delta.WorkedMinutes,
		delta.OvertimeMinutes,
		delta.OvertimePay,
	)
	if err != nil {
		return fmt.Errorf("failed to increment monthly summary %s: %w", key, err)
	}

	return nil
}

// GetByEmployeeAndMonth implements attendance.MonthlySummaryRepository.
func (r *monthlySummaryRepository) GetByEmployeeAndMonth(ctx context.Context, key attendance.MonthKey) (*attendance.MonthlySummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, year_month, present_days, worked_minutes,
			   overtime_minutes, overtime_pay, last_updated_at
		FROM monthly_summaries
		WHERE employee_id = $1
		  AND year_month = $2
	`

	var s attendance.MonthlySummary
	err := q.QueryRow(ctx, query, key.EmployeeID, key.YearMonth).Scan(
		&s.EmployeeID, &s.YearMonth, &s.PresentDays, &s.WorkedMinutes,
		&s.OvertimeMinutes, &s.OvertimePay, &s.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get monthly summary %s: %w", key, err)
	}

	return &s, nil
}
