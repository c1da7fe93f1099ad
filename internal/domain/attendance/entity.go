package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout      = "2006-01-02"
	YearMonthLayout = "2006-01"
)

// Mode is the action a scan token asserts.
type Mode string

const (
	ModeCheckIn  Mode = "check-in"
	ModeCheckOut Mode = "check-out"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCheckIn, ModeCheckOut:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Outcome is the business result of a scan that passed token verification.
type Outcome string

const (
	OutcomeCheckInRecorded   Outcome = "CHECK_IN_RECORDED"
	OutcomeAlreadyCheckedIn  Outcome = "ALREADY_CHECKED_IN"
	OutcomeCheckOutRecorded  Outcome = "CHECK_OUT_RECORDED"
	OutcomeAlreadyCheckedOut Outcome = "ALREADY_CHECKED_OUT"
	OutcomeRejectedNoCheckIn Outcome = "REJECTED_NO_CHECK_IN"
	OutcomeRejectedTooEarly  Outcome = "REJECTED_TOO_EARLY"
)

// DayState is the position of a day record in NoRecord -> CheckedIn -> CheckedOut.
type DayState int

const (
	StateNoRecord DayState = iota
	StateCheckedIn
	StateCheckedOut
)

func (s DayState) String() string {
	switch s {
	case StateCheckedIn:
		return "checked_in"
	case StateCheckedOut:
		return "checked_out"
	default:
		return "no_record"
	}
}

// DayKey identifies the single day record of one employee on one calendar date.
type DayKey struct {
	EmployeeID string
	Date       string // YYYY-MM-DD in the employee's local calendar
}

func NewDayKey(employeeID string, localDay time.Time) DayKey {
	return DayKey{EmployeeID: employeeID, Date: localDay.Format(DateLayout)}
}

func (k DayKey) String() string {
	return k.EmployeeID + "/" + k.Date
}

// Time returns the key date at midnight UTC, the representation stored in date columns.
func (k DayKey) Time() (time.Time, error) {
	return time.Parse(DateLayout, k.Date)
}

// MonthKey returns the month the day folds into.
func (k DayKey) MonthKey() MonthKey {
	return MonthKey{EmployeeID: k.EmployeeID, YearMonth: k.Date[:len(YearMonthLayout)]}
}

type DayRecord struct {
	ID              string
	EmployeeID      string
	Date            time.Time
	CheckInAt       *time.Time
	CheckOutAt      *time.Time
	WorkedMinutes   int
	OvertimeMinutes int
	OvertimePay     decimal.Decimal
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// State derives the day state; a nil record is NoRecord.
func (r *DayRecord) State() DayState {
	switch {
	case r == nil || r.CheckInAt == nil:
		return StateNoRecord
	case r.CheckOutAt == nil:
		return StateCheckedIn
	default:
		return StateCheckedOut
	}
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (r *DayRecord) Clone() *DayRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.CheckInAt != nil {
		t := *r.CheckInAt
		c.CheckInAt = &t
	}
	if r.CheckOutAt != nil {
		t := *r.CheckOutAt
		c.CheckOutAt = &t
	}
	return &c
}

// MonthKey identifies a monthly summary.
type MonthKey struct {
	EmployeeID string
	YearMonth  string // YYYY-MM
}

func (k MonthKey) String() string {
	return k.EmployeeID + "/" + k.YearMonth
}

// SummaryDelta is what one completed day adds to its month.
type SummaryDelta struct {
	PresentDays     int
	WorkedMinutes   int
	OvertimeMinutes int
	OvertimePay     decimal.Decimal
}

type MonthlySummary struct {
	EmployeeID      string
	YearMonth       string
	PresentDays     int
	WorkedMinutes   int
	OvertimeMinutes int
	OvertimePay     decimal.Decimal
	LastUpdatedAt   time.Time
}

// ScanResult is the output of RecordScan.
type ScanResult struct {
	Outcome         Outcome
	Key             DayKey
	Record          *DayRecord
	WorkedMinutes   int
	RequiredMinutes int
}
