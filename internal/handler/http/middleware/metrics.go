package middleware

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/pkg/metrics"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics records status and latency of every request.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			collector.Record(status, time.Since(start))
		})
	}
}
