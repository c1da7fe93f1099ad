package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"github.com/google/uuid"
)

// Decision is the state machine's verdict for one scan against one day record.
// Next is nil when the record must not be written.
type Decision struct {
	Outcome         attendance.Outcome
	Next            *attendance.DayRecord
	WorkedMinutes   int
	RequiredMinutes int
}

// StateMachine decides NoRecord -> CheckedIn -> CheckedOut transitions. It performs no I/O.
type StateMachine struct {
	overtime *OvertimeCalculator
	newID    func() string
}

func NewStateMachine(overtime *OvertimeCalculator) *StateMachine {
	return &StateMachine{
		overtime: overtime,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
}

// Decide applies a scan of mode at now to current, the stored record for key (nil when absent).
// loc is the employee's timezone; key.Date is a calendar date in loc.
func (m *StateMachine) Decide(
	current *attendance.DayRecord,
	key attendance.DayKey,
	mode attendance.Mode,
	profile employee.Profile,
	now time.Time,
	loc *time.Location,
) (Decision, error) {
	switch mode {
	case attendance.ModeCheckIn:
		return m.checkIn(current, key, now)
	case attendance.ModeCheckOut:
		return m.checkOut(current, key, profile, now, loc)
	default:
		return Decision{}, fmt.Errorf("%w: %q", attendance.ErrInvalidMode, mode)
	}
}

func (m *StateMachine) checkIn(current *attendance.DayRecord, key attendance.DayKey, now time.Time) (Decision, error) {
	if current.State() != attendance.StateNoRecord {
		// The original check-in time is never overwritten.
		return Decision{Outcome: attendance.OutcomeAlreadyCheckedIn}, nil
	}

	next := current.Clone()
	if next == nil {
		date, err := key.Time()
		if err != nil {
			return Decision{}, fmt.Errorf("invalid day key %s: %w", key, err)
		}
		next = &attendance.DayRecord{
			ID:         m.newID(),
			EmployeeID: key.EmployeeID,
			Date:       date,
		}
	}
	checkInAt := now.UTC()
	next.CheckInAt = &checkInAt

	return Decision{Outcome: attendance.OutcomeCheckInRecorded, Next: next}, nil
}

func (m *StateMachine) checkOut(
	current *attendance.DayRecord,
	key attendance.DayKey,
	profile employee.Profile,
	now time.Time,
	loc *time.Location,
) (Decision, error) {
	switch current.State() {
	case attendance.StateNoRecord:
		return Decision{Outcome: attendance.OutcomeRejectedNoCheckIn}, nil
	case attendance.StateCheckedOut:
		return Decision{Outcome: attendance.OutcomeAlreadyCheckedOut}, nil
	}

	day, err := time.ParseInLocation(attendance.DateLayout, key.Date, loc)
	if err != nil {
		return Decision{}, fmt.Errorf("invalid day key %s: %w", key, err)
	}

	checkIn := *current.CheckInAt
	checkOut := advancePast(now, checkIn)
	worked := minutesBetween(checkIn, checkOut)

	shiftStart := profile.ShiftStart.On(day, loc)
	shiftEnd := advancePast(profile.ShiftEnd.On(day, loc), shiftStart)
	required := minutesBetween(shiftStart, shiftEnd)

	if worked < required {
		return Decision{
			Outcome:         attendance.OutcomeRejectedTooEarly,
			WorkedMinutes:   worked,
			RequiredMinutes: required,
		}, nil
	}

	overtime := 0
	if checkOut.After(shiftEnd) {
		overtime = minutesBetween(shiftEnd, checkOut)
	}

	next := current.Clone()
	checkOutAt := checkOut.UTC()
	next.CheckOutAt = &checkOutAt
	next.WorkedMinutes = worked
	next.OvertimeMinutes = overtime
	next.OvertimePay = m.overtime.Compute(overtime, profile.OvertimeSlabs)

	return Decision{
		Outcome:         attendance.OutcomeCheckOutRecorded,
		Next:            next,
		WorkedMinutes:   worked,
		RequiredMinutes: required,
	}, nil
}

// openShiftCutoff is the instant until which yesterday's shift still owns scans: midway
// between its scheduled end and the scheduled start of today's shift.
func openShiftCutoff(profile employee.Profile, yesterday, today time.Time, loc *time.Location) time.Time {
	start := profile.ShiftStart.On(yesterday, loc)
	end := advancePast(profile.ShiftEnd.On(yesterday, loc), start)
	next := profile.ShiftStart.On(today, loc)
	return end.Add(next.Sub(end) / 2)
}

// advancePast moves t forward one calendar day when it falls before ref, the
// overnight rule for times that crossed midnight.
func advancePast(t, ref time.Time) time.Time {
	if t.Before(ref) {
		return t.AddDate(0, 0, 1)
	}
	return t
}

// minutesBetween returns whole minutes elapsed from a to b, truncated.
func minutesBetween(a, b time.Time) int {
	return int(b.Sub(a) / time.Minute)
}
