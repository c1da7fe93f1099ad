package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/qrtoken"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/validator"
)

// retryAfterSeconds is sent with every 503.
const retryAfterSeconds = 1

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Scan token errors
	case errors.Is(err, qrtoken.ErrExpired):
		Error(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "QR code expired, refresh and scan again")
	case errors.Is(err, qrtoken.ErrBadSignature):
		Error(w, http.StatusUnauthorized, "TOKEN_BAD_SIGNATURE", "QR code signature is invalid")
	case errors.Is(err, qrtoken.ErrMalformed):
		Error(w, http.StatusBadRequest, "TOKEN_MALFORMED", "QR code is not a valid attendance token")
	case errors.Is(err, qrtoken.ErrReplayed):
		Error(w, http.StatusConflict, "TOKEN_REPLAYED", "QR code was already used")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrScanDebounced):
		Error(w, http.StatusTooManyRequests, "SCAN_DEBOUNCED", "Duplicate scan ignored")
	case errors.Is(err, attendance.ErrInvalidMode):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrDayRecordNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrMonthlySummaryNotFound):
		NotFound(w, "Monthly summary not found")
	case errors.Is(err, attendance.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		ServiceUnavailable(w, "STORE_UNAVAILABLE", "Attendance store unavailable, retry the scan", retryAfterSeconds)

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		Error(w, http.StatusNotFound, "EMPLOYEE_NOT_FOUND", "Employee not found")
	case errors.Is(err, employee.ErrInvalidTimezone):
		Error(w, http.StatusInternalServerError, "EMPLOYEE_PROFILE_INVALID", "Employee profile has an unknown timezone")

	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrStationAccessRequired):
		Forbidden(w, "Station access required")
	case errors.Is(err, auth.ErrIssuerAccessRequired):
		Forbidden(w, "Issuer access required")
	case errors.Is(err, auth.ErrEmployeeMismatch):
		Forbidden(w, "Not allowed to access this employee")
	case errors.Is(err, auth.ErrStationMismatch):
		Forbidden(w, "Not allowed to access this station")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
