package employee

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the read-only view of an employee that attendance processing needs.
type Profile struct {
	ID            string
	Name          string
	ShiftStart    TimeOfDay
	ShiftEnd      TimeOfDay
	Timezone      string
	OvertimeSlabs []OvertimeSlab

	loc *time.Location
}

// OvertimeSlab pays HourlyRate for the overtime band [FromMinute, ToMinute).
type OvertimeSlab struct {
	FromMinute int
	ToMinute   int
	HourlyRate decimal.Decimal
}

// Width is the number of overtime minutes covered by the slab.
func (s OvertimeSlab) Width() int {
	return s.ToMinute - s.FromMinute
}

// IsOvernightShift reports whether the shift ends on the calendar day after it starts.
func (p Profile) IsOvernightShift() bool {
	return p.ShiftEnd.Before(p.ShiftStart)
}

// ResolveTimezone loads Timezone once. ProfileRepository implementations call it before
// handing a profile out; an empty Timezone leaves the service default in effect.
func (p *Profile) ResolveTimezone() error {
	p.loc = nil
	if p.Timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return fmt.Errorf("%w: %q for employee %s", ErrInvalidTimezone, p.Timezone, p.ID)
	}
	p.loc = loc
	return nil
}

// Location returns the resolved timezone, or fallback when the profile has none.
func (p Profile) Location(fallback *time.Location) *time.Location {
	if p.loc != nil {
		return p.loc
	}
	return fallback
}

// TimeOfDay is a wall clock time without a date, minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "15:04" or "15:04:05"; seconds are dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MinuteOfDay returns minutes elapsed since midnight.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t.MinuteOfDay() < u.MinuteOfDay()
}

// On places the time of day on the calendar date of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
}
