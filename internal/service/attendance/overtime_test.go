package attendance

import (
	"testing"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func slab(from, to int, rate string) employee.OvertimeSlab {
	return employee.OvertimeSlab{FromMinute: from, ToMinute: to, HourlyRate: decimal.RequireFromString(rate)}
}

func TestOvertimeCalculator_Compute(t *testing.T) {
	twoTier := []employee.OvertimeSlab{slab(0, 60, "2"), slab(60, 120, "3")}

	cases := []struct {
		name    string
		minutes int
		slabs   []employee.OvertimeSlab
		want    string
	}{
		{"no overtime", 0, twoTier, "0"},
		{"negative minutes", -15, twoTier, "0"},
		{"no slabs", 90, nil, "0"},
		{"leftover narrower than every slab is dropped", 90, twoTier, "2"},
		{"exactly one slab", 60, twoTier, "2"},
		{"below narrowest slab", 59, twoTier, "0"},
		{"rescans from the first slab", 150, twoTier, "4"},
		{"two full widths", 120, twoTier, "4"},
		{"unsorted input is ordered by from minute", 90, []employee.OvertimeSlab{slab(60, 120, "3"), slab(0, 60, "2")}, "2"},
		{"narrow second slab catches leftovers", 75, []employee.OvertimeSlab{slab(0, 60, "2"), slab(60, 75, "4")}, "3"},
		{"wide first slab skipped when it does not fit", 45, []employee.OvertimeSlab{slab(0, 60, "2"), slab(60, 90, "6")}, "3"},
		{"zero width slab ignored", 30, []employee.OvertimeSlab{slab(0, 0, "100"), slab(0, 30, "1")}, "0.5"},
		{"fractional hours rounded to three places", 20, []employee.OvertimeSlab{slab(0, 20, "1")}, "0.333"},
		{"fractional rate", 30, []employee.OvertimeSlab{slab(0, 30, "2.5")}, "1.25"},
	}

	calc := NewOvertimeCalculator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.Compute(tc.minutes, tc.slabs)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s, want %s", got, tc.want)
		})
	}
}

func TestOvertimeCalculator_DoesNotReorderCallerSlabs(t *testing.T) {
	slabs := []employee.OvertimeSlab{slab(60, 120, "3"), slab(0, 60, "2")}
	NewOvertimeCalculator().Compute(90, slabs)
	assert.Equal(t, 60, slabs[0].FromMinute)
}
