package employee

import "context"

// ProfileRepository is the employee directory consulted on every scan.
// GetProfile returns ErrEmployeeNotFound when the id is unknown.
type ProfileRepository interface {
	GetProfile(ctx context.Context, employeeID string) (Profile, error)
}
