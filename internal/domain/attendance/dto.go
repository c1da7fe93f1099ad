package attendance

import (
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/validator"
)

// maxPayloadBytes bounds a decoded QR payload; the signed JSON token is well under this.
const maxPayloadBytes = 1024

// ========================================
// SCAN DTOs
// ========================================

type ScanRequest struct {
	StationID string `json:"-"`
	Payload   string `json:"payload"`
}

func (r *ScanRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Payload) {
		errs = append(errs, validator.ValidationError{
			Field:   "payload",
			Message: "payload is required",
		})
	} else if len(r.Payload) > maxPayloadBytes {
		errs = append(errs, validator.ValidationError{
			Field:   "payload",
			Message: "payload must not exceed 1024 bytes",
		})
	} else if !validator.IsPrintableASCII(r.Payload) {
		errs = append(errs, validator.ValidationError{
			Field:   "payload",
			Message: "payload contains unsupported characters",
		})
	}

	if validator.IsEmpty(r.StationID) {
		errs = append(errs, validator.ValidationError{
			Field:   "station_id",
			Message: "station_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ScanResponse struct {
	ScanID          string             `json:"scan_id"`
	Outcome         Outcome            `json:"outcome"`
	Mode            Mode               `json:"mode"`
	EmployeeID      string             `json:"employee_id"`
	EmployeeName    string             `json:"employee_name"`
	Date            string             `json:"date"`
	ScannedAt       string             `json:"scanned_at"`
	WorkedMinutes   *int               `json:"worked_minutes,omitempty"`
	RequiredMinutes *int               `json:"required_minutes,omitempty"`
	Record          *DayRecordResponse `json:"record,omitempty"`
}

// ========================================
// TOKEN DTOs
// ========================================

type IssueTokenRequest struct {
	EmployeeID string `json:"-"`
	Mode       string `json:"mode"`
}

func (r *IssueTokenRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if !validator.IsInSlice(r.Mode, []string{string(ModeCheckIn), string(ModeCheckOut)}) {
		errs = append(errs, validator.ValidationError{
			Field:   "mode",
			Message: "mode must be one of: check-in, check-out",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type IssueTokenResponse struct {
	Payload          string `json:"payload"`
	Mode             Mode   `json:"mode"`
	IssuedAt         string `json:"issued_at"`
	ExpiresAt        string `json:"expires_at"`
	RefreshInSeconds int    `json:"refresh_in_seconds"`
}

// ========================================
// READ DTOs
// ========================================

type GetDayRecordRequest struct {
	EmployeeID string `json:"-"`
	Date       string `json:"-"` // YYYY-MM-DD
}

func (r *GetDayRecordRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type GetMonthlySummaryRequest struct {
	EmployeeID string `json:"-"`
	YearMonth  string `json:"-"` // YYYY-MM
}

func (r *GetMonthlySummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if _, valid := validator.IsValidYearMonth(r.YearMonth); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "year_month",
			Message: "year_month must be in YYYY-MM format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DayRecordResponse struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	Date            string  `json:"date"`
	Status          string  `json:"status"`
	CheckInAt       *string `json:"check_in_at,omitempty"`
	CheckOutAt      *string `json:"check_out_at,omitempty"`
	WorkedMinutes   int     `json:"worked_minutes"`
	OvertimeMinutes int     `json:"overtime_minutes"`
	OvertimePay     string  `json:"overtime_pay"`
	UpdatedAt       string  `json:"updated_at"`
}

type MonthlySummaryResponse struct {
	EmployeeID      string `json:"employee_id"`
	YearMonth       string `json:"year_month"`
	PresentDays     int    `json:"present_days"`
	WorkedMinutes   int    `json:"worked_minutes"`
	WorkedHours     string `json:"worked_hours"`
	OvertimeMinutes int    `json:"overtime_minutes"`
	OvertimePay     string `json:"overtime_pay"`
	LastUpdatedAt   string `json:"last_updated_at"`
}
