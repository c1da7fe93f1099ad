package attendance

import (
	"cmp"
	"slices"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// overtimePayPlaces is the rounding applied to every computed overtime amount.
const overtimePayPlaces = 3

var minutesPerHour = decimal.NewFromInt(60)

type OvertimeCalculator struct {
}

func NewOvertimeCalculator() *OvertimeCalculator {
	return &OvertimeCalculator{}
}

// Compute pays overtime by whole slabs. Starting from the lowest slab it takes the first
// slab whose full width still fits in the unpaid minutes, pays width/60 * rate, and
// rescans from the lowest slab. Minutes narrower than every slab are not paid.
func (c *OvertimeCalculator) Compute(overtimeMinutes int, slabs []employee.OvertimeSlab) decimal.Decimal {
	total := decimal.Zero
	if overtimeMinutes <= 0 || len(slabs) == 0 {
		return total
	}

	ordered := make([]employee.OvertimeSlab, 0, len(slabs))
	for _, slab := range slabs {
		// A zero-width slab would always fit and never consume anything.
		if slab.Width() > 0 {
			ordered = append(ordered, slab)
		}
	}
	slices.SortStableFunc(ordered, func(a, b employee.OvertimeSlab) int {
		return cmp.Compare(a.FromMinute, b.FromMinute)
	})

	remaining := overtimeMinutes
	for remaining > 0 {
		applied := false
		for _, slab := range ordered {
			width := slab.Width()
			if remaining < width {
				continue
			}
			total = total.Add(decimal.NewFromInt(int64(width)).Div(minutesPerHour).Mul(slab.HourlyRate))
			remaining -= width
			applied = true
			break
		}
		if !applied {
			break
		}
	}

	return total.Round(overtimePayPlaces)
}
