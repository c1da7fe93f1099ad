package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/qr-attendance/internal/handler/http/response"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
)

const keepaliveInterval = 30 * time.Second

type StreamHandler interface {
	GetStationStreamToken(w http.ResponseWriter, r *http.Request)
	GetEmployeeStreamToken(w http.ResponseWriter, r *http.Request)
	StreamStation(w http.ResponseWriter, r *http.Request)
	StreamEmployee(w http.ResponseWriter, r *http.Request)
}

type streamHandlerImpl struct {
	jwtService jwt.Service
	hub        *sse.Hub
}

func NewStreamHandler(jwtService jwt.Service, hub *sse.Hub) StreamHandler {
	return &streamHandlerImpl{
		jwtService: jwtService,
		hub:        hub,
	}
}

// GetStationStreamToken generates a short-lived token for the station's event stream
func (h *streamHandlerImpl) GetStationStreamToken(w http.ResponseWriter, r *http.Request) {
	h.issueStreamToken(w, auth.Principal{StationID: chi.URLParam(r, "stationID")})
}

// GetEmployeeStreamToken generates a short-lived token for the employee's event stream
func (h *streamHandlerImpl) GetEmployeeStreamToken(w http.ResponseWriter, r *http.Request) {
	h.issueStreamToken(w, auth.Principal{EmployeeID: chi.URLParam(r, "employeeID")})
}

func (h *streamHandlerImpl) issueStreamToken(w http.ResponseWriter, subject auth.Principal) {
	token, expiresIn, err := h.jwtService.GenerateStreamToken(subject)
	if err != nil {
		slog.Error("Failed to generate stream token",
			"station_id", subject.StationID,
			"employee_id", subject.EmployeeID,
			"error", err,
		)
		response.InternalServerError(w, "Failed to generate stream token")
		return
	}

	response.Success(w, auth.StreamTokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// StreamStation sends the station's scan outcomes as server-sent events
func (h *streamHandlerImpl) StreamStation(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.authorizeStream(w, r)
	if !ok {
		return
	}
	stationID := chi.URLParam(r, "stationID")
	if subject.StationID == "" || subject.StationID != stationID {
		response.HandleError(w, auth.ErrStationMismatch)
		return
	}
	h.serve(w, r, sse.StationTopic(stationID), "station_id", stationID)
}

// StreamEmployee sends the outcomes of the employee's own scans, for the QR screen
func (h *streamHandlerImpl) StreamEmployee(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.authorizeStream(w, r)
	if !ok {
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if subject.EmployeeID == "" || subject.EmployeeID != employeeID {
		response.HandleError(w, auth.ErrEmployeeMismatch)
		return
	}
	h.serve(w, r, sse.EmployeeTopic(employeeID), "employee_id", employeeID)
}

func (h *streamHandlerImpl) authorizeStream(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return auth.Principal{}, false
	}

	subject, err := h.jwtService.ValidateStreamToken(tokenStr)
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return auth.Principal{}, false
	}
	return subject, true
}

func (h *streamHandlerImpl) serve(w http.ResponseWriter, r *http.Request, topic, idField, id string) {
	// Check if streaming is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(topic)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",%q:%q}\n\n", idField, id)
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Error("Failed to encode stream event", "topic", topic, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
