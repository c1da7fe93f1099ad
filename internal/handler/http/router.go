package http

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/cmlabs-hris/qr-attendance/internal/config"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/qr-attendance/internal/handler/http/middleware"
	"github.com/cmlabs-hris/qr-attendance/internal/handler/http/response"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

const appName = "qr-attendance"

// NewLogger builds the JSON logger shared by the access log and the application.
func NewLogger(app config.AppConfig) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(app.Env != "development")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       parseLevel(app.LogLevel),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", appName),
		slog.String("env", app.Env),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func NewRouter(
	app config.AppConfig,
	logger *slog.Logger,
	JWTService jwt.Service,
	collector *metrics.Collector,
	attendanceHandler AttendanceHandler,
	streamHandler StreamHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
		Skip: func(req *http.Request, respStatus int) bool {
			return req.URL.Path == "/" || req.URL.Path == "/metrics"
		},
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))
	r.Use(middleware.Metrics(collector))

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, collector.Snapshot())
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Event streams authenticate with a query token
		r.Get("/stations/{stationID}/events", streamHandler.StreamStation)
		r.Get("/employees/{employeeID}/events", streamHandler.StreamEmployee)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(jwtauth.Authenticator(JWTService.JWTAuth()))

			// Scanner stations
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireTokenType(auth.TokenTypeStation))
				r.With(chiMiddleware.AllowContentType("application/json")).Post("/scans", attendanceHandler.Scan)
				r.With(middleware.RequireStationAccess).Post("/stations/{stationID}/stream-token", streamHandler.GetStationStreamToken)
			})

			// Employee QR screens
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireTokenType(auth.TokenTypeIssuer))
				r.With(chiMiddleware.AllowContentType("application/json")).Post("/tokens", attendanceHandler.IssueToken)
			})

			// Read models
			r.Route("/employees/{employeeID}", func(r chi.Router) {
				r.Use(middleware.RequireTokenType(auth.TokenTypeStation, auth.TokenTypeIssuer))
				r.Use(middleware.RequireEmployeeAccess)
				r.Get("/days/{date}", attendanceHandler.GetDayRecord)
				r.Get("/summaries/{yearMonth}", attendanceHandler.GetMonthlySummary)
				r.With(middleware.RequireTokenType(auth.TokenTypeIssuer)).Post("/stream-token", streamHandler.GetEmployeeStreamToken)
			})
		})
	})
	return r
}
