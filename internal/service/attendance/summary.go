package attendance

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
)

// SummaryAggregator folds completed days into monthly summaries.
type SummaryAggregator struct {
	summaries attendance.MonthlySummaryRepository
}

func NewSummaryAggregator(summaries attendance.MonthlySummaryRepository) *SummaryAggregator {
	return &SummaryAggregator{summaries: summaries}
}

// Fold adds one completed day to its month. It must be called exactly once per
// CheckOutRecorded outcome; the increment happens in place in the store.
func (a *SummaryAggregator) Fold(ctx context.Context, key attendance.MonthKey, day *attendance.DayRecord) error {
	if day.State() != attendance.StateCheckedOut {
		return fmt.Errorf("fold %s: %w", key, attendance.ErrInvalidCheckOutSequence)
	}

	delta := attendance.SummaryDelta{
		PresentDays:     1,
		WorkedMinutes:   day.WorkedMinutes,
		OvertimeMinutes: day.OvertimeMinutes,
		OvertimePay:     day.OvertimePay,
	}
	if err := a.summaries.IncrementCounters(ctx, key, delta); err != nil {
		return fmt.Errorf("failed to increment monthly summary %s: %w", key, err)
	}
	return nil
}
