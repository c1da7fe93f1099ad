package auth

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrStationAccessRequired = errors.New("station token required")
	ErrIssuerAccessRequired  = errors.New("issuer token required")
	ErrEmployeeMismatch      = errors.New("token does not belong to this employee")
	ErrStationMismatch       = errors.New("token does not belong to this station")
)
