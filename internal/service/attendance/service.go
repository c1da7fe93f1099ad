package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/metrics"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/qrtoken"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/sse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScanEventName is the SSE event carrying a ScanResponse.
const ScanEventName = "scan"

var _ attendance.ScanService = (*ScanServiceImpl)(nil)

type ScanServiceImpl struct {
	codec        qrtoken.Codec
	replay       *qrtoken.ReplayGuard
	debouncer    *Debouncer
	profiles     employee.ProfileRepository
	recorder     *Recorder
	days         attendance.DayRecordRepository
	summaries    attendance.MonthlySummaryRepository
	hub          *sse.Hub
	metrics      *metrics.Collector
	storeTimeout time.Duration
	defaultLoc   *time.Location
	now          func() time.Time
}

// NewScanService wires the scan pipeline. replay, hub and metrics are optional.
func NewScanService(
	codec qrtoken.Codec,
	replay *qrtoken.ReplayGuard,
	debouncer *Debouncer,
	profiles employee.ProfileRepository,
	recorder *Recorder,
	days attendance.DayRecordRepository,
	summaries attendance.MonthlySummaryRepository,
	hub *sse.Hub,
	metricsCollector *metrics.Collector,
	storeTimeout time.Duration,
	defaultLoc *time.Location,
) *ScanServiceImpl {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &ScanServiceImpl{
		codec:        codec,
		replay:       replay,
		debouncer:    debouncer,
		profiles:     profiles,
		recorder:     recorder,
		days:         days,
		summaries:    summaries,
		hub:          hub,
		metrics:      metricsCollector,
		storeTimeout: storeTimeout,
		defaultLoc:   defaultLoc,
		now:          time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *ScanServiceImpl) WithClock(now func() time.Time) *ScanServiceImpl {
	s.now = now
	return s
}

// Scan runs one decoded QR payload through verification and the day state machine.
func (s *ScanServiceImpl) Scan(ctx context.Context, req attendance.ScanRequest) (attendance.ScanResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ScanResponse{}, err
	}
	now := s.now()

	if !s.debouncer.Allow(req.Payload, now) {
		s.countOutcome("SCAN_DEBOUNCED")
		return attendance.ScanResponse{}, attendance.ErrScanDebounced
	}

	claims, err := s.verify(req, now)
	if err != nil {
		return attendance.ScanResponse{}, err
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	result, profile, err := s.record(ctx, claims, now)
	if err != nil {
		// A retry of the same code must not be swallowed by the debounce or the replay guard.
		s.debouncer.Forget(req.Payload)
		if s.replay != nil && errors.Is(err, attendance.ErrStoreUnavailable) {
			s.replay.Release(claims)
		}
		switch {
		case errors.Is(err, employee.ErrEmployeeNotFound):
			s.countOutcome("EMPLOYEE_NOT_FOUND")
			slog.Warn("scan for unknown employee",
				"station_id", req.StationID,
				"employee_id", claims.EmployeeID,
			)
		case errors.Is(err, employee.ErrInvalidTimezone):
			s.countOutcome("EMPLOYEE_PROFILE_INVALID")
			slog.Error("employee profile has an unknown timezone",
				"station_id", req.StationID,
				"employee_id", claims.EmployeeID,
				"error", err,
			)
		default:
			s.countOutcome("STORE_UNAVAILABLE")
			slog.Error("failed to record scan",
				"station_id", req.StationID,
				"employee_id", claims.EmployeeID,
				"mode", claims.Mode,
				"error", err,
			)
		}
		return attendance.ScanResponse{}, err
	}

	s.countOutcome(string(result.Outcome))

	resp := attendance.ScanResponse{
		ScanID:       uuid.Must(uuid.NewV7()).String(),
		Outcome:      result.Outcome,
		Mode:         claims.Mode,
		EmployeeID:   claims.EmployeeID,
		EmployeeName: profile.Name,
		Date:         result.Key.Date,
		ScannedAt:    now.UTC().Format(time.RFC3339),
	}
	if result.Record != nil {
		record := toDayRecordResponse(result.Record)
		resp.Record = &record
	}
	if claims.Mode == attendance.ModeCheckOut && result.RequiredMinutes > 0 {
		worked, required := result.WorkedMinutes, result.RequiredMinutes
		resp.WorkedMinutes = &worked
		resp.RequiredMinutes = &required
	}

	slog.Info("scan processed",
		"scan_id", resp.ScanID,
		"station_id", req.StationID,
		"employee_id", claims.EmployeeID,
		"mode", claims.Mode,
		"outcome", result.Outcome,
		"date", result.Key.Date,
	)

	if s.hub != nil {
		s.hub.PublishToMany(
			[]string{sse.StationTopic(req.StationID), sse.EmployeeTopic(claims.EmployeeID)},
			sse.Event{Event: ScanEventName, Data: resp},
		)
	}

	return resp, nil
}

func (s *ScanServiceImpl) verify(req attendance.ScanRequest, now time.Time) (qrtoken.Claims, error) {
	token, err := s.codec.Decode(req.Payload)
	if err == nil {
		var claims qrtoken.Claims
		claims, err = s.codec.Verify(token, now)
		if err == nil && s.replay != nil {
			err = s.replay.Consume(claims, now)
		}
		if err == nil {
			return claims, nil
		}
	}

	code := CredentialErrorCode(err)
	s.countOutcome(code)
	slog.Warn("scan token rejected",
		"station_id", req.StationID,
		"employee_id", token.EmployeeID,
		"code", code,
		"error", err,
	)
	return qrtoken.Claims{}, err
}

func (s *ScanServiceImpl) record(ctx context.Context, claims qrtoken.Claims, now time.Time) (attendance.ScanResult, employee.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, claims.EmployeeID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) || errors.Is(err, employee.ErrInvalidTimezone) {
			return attendance.ScanResult{}, employee.Profile{}, err
		}
		return attendance.ScanResult{}, employee.Profile{}, fmt.Errorf("%w: load profile %s: %w", attendance.ErrStoreUnavailable, claims.EmployeeID, err)
	}

	result, err := s.recorder.RecordScan(ctx, claims.EmployeeID, claims.Mode, profile, now)
	if err != nil {
		return attendance.ScanResult{}, employee.Profile{}, err
	}
	return result, profile, nil
}

// IssueToken signs a fresh token for the employee's QR screen.
func (s *ScanServiceImpl) IssueToken(ctx context.Context, req attendance.IssueTokenRequest) (attendance.IssueTokenResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.IssueTokenResponse{}, err
	}
	now := s.now()

	token, err := s.codec.Issue(req.EmployeeID, attendance.Mode(req.Mode), now)
	if err != nil {
		return attendance.IssueTokenResponse{}, fmt.Errorf("failed to issue scan token: %w", err)
	}
	payload, err := s.codec.Encode(token)
	if err != nil {
		return attendance.IssueTokenResponse{}, err
	}

	window := s.codec.ValidityWindow()
	refresh := int((window / 2) / time.Second)
	if refresh < 1 {
		refresh = 1
	}

	return attendance.IssueTokenResponse{
		Payload:          payload,
		Mode:             token.Mode,
		IssuedAt:         time.Unix(token.IssuedAt, 0).UTC().Format(time.RFC3339),
		ExpiresAt:        time.Unix(token.IssuedAt, 0).Add(window).UTC().Format(time.RFC3339),
		RefreshInSeconds: refresh,
	}, nil
}

func (s *ScanServiceImpl) GetDayRecord(ctx context.Context, req attendance.GetDayRecordRequest) (attendance.DayRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.DayRecordResponse{}, err
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	record, err := s.days.GetByEmployeeAndDate(ctx, attendance.DayKey{EmployeeID: req.EmployeeID, Date: req.Date})
	if err != nil {
		return attendance.DayRecordResponse{}, fmt.Errorf("%w: get day record: %w", attendance.ErrStoreUnavailable, err)
	}
	if record == nil {
		return attendance.DayRecordResponse{}, attendance.ErrDayRecordNotFound
	}
	return toDayRecordResponse(record), nil
}

func (s *ScanServiceImpl) GetMonthlySummary(ctx context.Context, req attendance.GetMonthlySummaryRequest) (attendance.MonthlySummaryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.MonthlySummaryResponse{}, err
	}

	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	summary, err := s.summaries.GetByEmployeeAndMonth(ctx, attendance.MonthKey{EmployeeID: req.EmployeeID, YearMonth: req.YearMonth})
	if err != nil {
		return attendance.MonthlySummaryResponse{}, fmt.Errorf("%w: get monthly summary: %w", attendance.ErrStoreUnavailable, err)
	}
	if summary == nil {
		return attendance.MonthlySummaryResponse{}, attendance.ErrMonthlySummaryNotFound
	}

	return attendance.MonthlySummaryResponse{
		EmployeeID:      summary.EmployeeID,
		YearMonth:       summary.YearMonth,
		PresentDays:     summary.PresentDays,
		WorkedMinutes:   summary.WorkedMinutes,
		WorkedHours:     decimal.NewFromInt(int64(summary.WorkedMinutes)).Div(decimal.NewFromInt(60)).StringFixed(2),
		OvertimeMinutes: summary.OvertimeMinutes,
		OvertimePay:     summary.OvertimePay.StringFixed(3),
		LastUpdatedAt:   summary.LastUpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s *ScanServiceImpl) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *ScanServiceImpl) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOutcome(outcome)
	}
}

// CredentialErrorCode names a token verification failure with its stable error code.
func CredentialErrorCode(err error) string {
	switch {
	case errors.Is(err, qrtoken.ErrExpired):
		return "TOKEN_EXPIRED"
	case errors.Is(err, qrtoken.ErrBadSignature):
		return "TOKEN_BAD_SIGNATURE"
	case errors.Is(err, qrtoken.ErrReplayed):
		return "TOKEN_REPLAYED"
	default:
		return "TOKEN_MALFORMED"
	}
}

func toDayRecordResponse(r *attendance.DayRecord) attendance.DayRecordResponse {
	return attendance.DayRecordResponse{
		ID:              r.ID,
		EmployeeID:      r.EmployeeID,
		Date:            r.Date.Format(attendance.DateLayout),
		Status:          r.State().String(),
		CheckInAt:       timePtrToString(r.CheckInAt),
		CheckOutAt:      timePtrToString(r.CheckOutAt),
		WorkedMinutes:   r.WorkedMinutes,
		OvertimeMinutes: r.OvertimeMinutes,
		OvertimePay:     r.OvertimePay.StringFixed(3),
		UpdatedAt:       r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
