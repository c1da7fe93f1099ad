package middleware

import (
	"net/http"
	"slices"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/qr-attendance/internal/handler/http/response"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
)

// RequireTokenType admits requests whose verified JWT carries one of types.
// It must run after jwtauth.Verifier.
func RequireTokenType(types ...auth.TokenType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			principal, err := jwt.PrincipalFromContext(r.Context())
			if err != nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if !slices.Contains(types, principal.Type) {
				switch {
				case slices.Contains(types, auth.TokenTypeStation):
					response.HandleError(w, auth.ErrStationAccessRequired)
				default:
					response.HandleError(w, auth.ErrIssuerAccessRequired)
				}
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// RequireEmployeeAccess lets stations through and limits issuers to their own
// {employeeID} URL parameter.
func RequireEmployeeAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := jwt.PrincipalFromContext(r.Context())
		if err != nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if !principal.CanRead(chi.URLParam(r, "employeeID")) {
			response.HandleError(w, auth.ErrEmployeeMismatch)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireStationAccess limits a station token to its own {stationID} URL parameter.
func RequireStationAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := jwt.PrincipalFromContext(r.Context())
		if err != nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if principal.Type != auth.TokenTypeStation || principal.StationID != chi.URLParam(r, "stationID") {
			response.HandleError(w, auth.ErrStationMismatch)
			return
		}

		next.ServeHTTP(w, r)
	})
}
