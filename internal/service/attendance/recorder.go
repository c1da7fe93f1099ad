package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
)

// Recorder runs the state machine against stored day records and folds completed
// days into their month inside the same store transaction.
type Recorder struct {
	tx         attendance.Transactor
	days       attendance.DayRecordRepository
	machine    *StateMachine
	aggregator *SummaryAggregator
	defaultLoc *time.Location
}

func NewRecorder(
	tx attendance.Transactor,
	days attendance.DayRecordRepository,
	machine *StateMachine,
	aggregator *SummaryAggregator,
	defaultLoc *time.Location,
) *Recorder {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Recorder{
		tx:         tx,
		days:       days,
		machine:    machine,
		aggregator: aggregator,
		defaultLoc: defaultLoc,
	}
}

// RecordScan applies a verified scan to the employee's record for the local calendar day of now.
// Until the open-shift cutoff, a record from yesterday that is still checked in owns the scan:
// a check-in reports it as AlreadyCheckedIn, and a check-out finding nothing today closes it.
// Returned errors are infrastructure failures wrapped in attendance.ErrStoreUnavailable.
func (r *Recorder) RecordScan(
	ctx context.Context,
	employeeID string,
	mode attendance.Mode,
	profile employee.Profile,
	now time.Time,
) (attendance.ScanResult, error) {
	loc := profile.Location(r.defaultLoc)
	today := now.In(loc)
	yesterday := today.AddDate(0, 0, -1)
	todayKey := attendance.NewDayKey(employeeID, today)
	yesterdayKey := attendance.NewDayKey(employeeID, yesterday)
	withinOpenShift := now.Before(openShiftCutoff(profile, yesterday, today, loc))

	if mode == attendance.ModeCheckIn && withinOpenShift {
		open, err := r.openRecord(ctx, yesterdayKey)
		if err != nil {
			return attendance.ScanResult{}, err
		}
		if open != nil {
			return attendance.ScanResult{
				Outcome: attendance.OutcomeAlreadyCheckedIn,
				Key:     yesterdayKey,
				Record:  open,
			}, nil
		}
	}

	result, err := r.apply(ctx, todayKey, mode, profile, now, loc)
	if err != nil {
		return attendance.ScanResult{}, err
	}

	if mode == attendance.ModeCheckOut &&
		result.Outcome == attendance.OutcomeRejectedNoCheckIn &&
		withinOpenShift {
		previous, err := r.apply(ctx, yesterdayKey, mode, profile, now, loc)
		if err != nil {
			return attendance.ScanResult{}, err
		}
		if previous.Outcome != attendance.OutcomeRejectedNoCheckIn {
			return previous, nil
		}
	}

	return result, nil
}

// openRecord returns the record for key when it is still checked in, nil otherwise.
func (r *Recorder) openRecord(ctx context.Context, key attendance.DayKey) (*attendance.DayRecord, error) {
	record, err := r.days.GetByEmployeeAndDate(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: load open record %s: %w", attendance.ErrStoreUnavailable, key, err)
	}
	if record.State() != attendance.StateCheckedIn {
		return nil, nil
	}
	return record, nil
}

func (r *Recorder) apply(
	ctx context.Context,
	key attendance.DayKey,
	mode attendance.Mode,
	profile employee.Profile,
	now time.Time,
	loc *time.Location,
) (attendance.ScanResult, error) {
	var decision Decision

	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stored, err := r.days.TransactionalUpsert(ctx, key, func(current *attendance.DayRecord) (*attendance.DayRecord, error) {
			d, err := r.machine.Decide(current, key, mode, profile, now, loc)
			if err != nil {
				return nil, err
			}
			decision = d
			return d.Next, nil
		})
		if err != nil {
			return err
		}
		decision.Next = stored

		if decision.Outcome == attendance.OutcomeCheckOutRecorded {
			return r.aggregator.Fold(ctx, key.MonthKey(), stored)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, attendance.ErrInvalidMode) {
			return attendance.ScanResult{}, err
		}
		return attendance.ScanResult{}, fmt.Errorf("%w: record scan %s: %w", attendance.ErrStoreUnavailable, key, err)
	}

	return attendance.ScanResult{
		Outcome:         decision.Outcome,
		Key:             key,
		Record:          decision.Next,
		WorkedMinutes:   decision.WorkedMinutes,
		RequiredMinutes: decision.RequiredMinutes,
	}, nil
}
