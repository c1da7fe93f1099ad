package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance/internal/handler/http/response"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds JSON request bodies; a scan body is a single QR payload.
const maxBodyBytes = 4 << 10

type AttendanceHandler interface {
	Scan(w http.ResponseWriter, r *http.Request)
	IssueToken(w http.ResponseWriter, r *http.Request)
	GetDayRecord(w http.ResponseWriter, r *http.Request)
	GetMonthlySummary(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	scanService attendance.ScanService
}

func NewAttendanceHandler(scanService attendance.ScanService) AttendanceHandler {
	return &attendanceHandlerImpl{
		scanService: scanService,
	}
}

// Scan implements AttendanceHandler.
func (h *attendanceHandlerImpl) Scan(w http.ResponseWriter, r *http.Request) {
	principal, err := jwt.PrincipalFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req attendance.ScanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.StationID = principal.StationID

	result, err := h.scanService.Scan(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// IssueToken implements AttendanceHandler.
func (h *attendanceHandlerImpl) IssueToken(w http.ResponseWriter, r *http.Request) {
	principal, err := jwt.PrincipalFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req attendance.IssueTokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = principal.EmployeeID

	result, err := h.scanService.IssueToken(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Scan token issued", result)
}

// GetDayRecord implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetDayRecord(w http.ResponseWriter, r *http.Request) {
	req := attendance.GetDayRecordRequest{
		EmployeeID: chi.URLParam(r, "employeeID"),
		Date:       chi.URLParam(r, "date"),
	}

	result, err := h.scanService.GetDayRecord(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetMonthlySummary implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	req := attendance.GetMonthlySummaryRequest{
		EmployeeID: chi.URLParam(r, "employeeID"),
		YearMonth:  chi.URLParam(r, "yearMonth"),
	}

	result, err := h.scanService.GetMonthlySummary(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
