package fixtures

import (
	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// ==========================================
// DEFAULT SHIFTS
// ==========================================

// Standard office hours, 08:00 - 17:00 WIB
var officeShift = struct{ start, end employee.TimeOfDay }{
	start: employee.TimeOfDay{Hour: 8},
	end:   employee.TimeOfDay{Hour: 17},
}

// Night security shift, 22:00 - 06:00 WIB, ends on the next calendar day
var nightShift = struct{ start, end employee.TimeOfDay }{
	start: employee.TimeOfDay{Hour: 22},
	end:   employee.TimeOfDay{Hour: 6},
}

// ==========================================
// DEFAULT OVERTIME SLABS
// ==========================================

// GetDefaultOvertimeSlabs returns a two tier overtime table: the first hour at
// baseRate x 1.5, further hours at baseRate x 2.
func GetDefaultOvertimeSlabs(baseRate decimal.Decimal) []employee.OvertimeSlab {
	return []employee.OvertimeSlab{
		{FromMinute: 0, ToMinute: 60, HourlyRate: baseRate.Mul(decimal.RequireFromString("1.5"))},
		{FromMinute: 60, ToMinute: 120, HourlyRate: baseRate.Mul(decimal.NewFromInt(2))},
	}
}

// ==========================================
// DEMO EMPLOYEES
// ==========================================

// GetDefaultProfiles returns demo employees for development environments
func GetDefaultProfiles() []employee.Profile {
	baseRate := decimal.NewFromInt(25000)

	return []employee.Profile{
		{
			ID:            "EMP-0001",
			Name:          "Siti Rahmawati",
			ShiftStart:    officeShift.start,
			ShiftEnd:      officeShift.end,
			Timezone:      "Asia/Jakarta",
			OvertimeSlabs: GetDefaultOvertimeSlabs(baseRate),
		},
		{
			ID:            "EMP-0002",
			Name:          "Budi Santoso",
			ShiftStart:    officeShift.start,
			ShiftEnd:      officeShift.end,
			Timezone:      "Asia/Jakarta",
			OvertimeSlabs: GetDefaultOvertimeSlabs(baseRate),
		},
		{
			ID:            "EMP-0003",
			Name:          "Agus Wijaya",
			ShiftStart:    nightShift.start,
			ShiftEnd:      nightShift.end,
			Timezone:      "Asia/Jakarta",
			OvertimeSlabs: GetDefaultOvertimeSlabs(baseRate),
		},
	}
}
