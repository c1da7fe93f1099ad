package auth

// TokenType is the "type" claim of every JWT the service accepts.
type TokenType string

const (
	// TokenTypeStation authenticates a scanner device.
	TokenTypeStation TokenType = "station"
	// TokenTypeIssuer authenticates an employee device that displays QR codes.
	TokenTypeIssuer TokenType = "issuer"
	// TokenTypeStream is a short-lived token passed as a query parameter to the event stream.
	TokenTypeStream TokenType = "stream"
)

// Claim names
const (
	ClaimType       = "type"
	ClaimStationID  = "station_id"
	ClaimEmployeeID = "employee_id"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Type       TokenType
	StationID  string
	EmployeeID string
}

// CanRead reports whether the principal may read attendance data of employeeID.
// Stations read any employee; issuers read only themselves.
func (p Principal) CanRead(employeeID string) bool {
	switch p.Type {
	case TokenTypeStation:
		return true
	case TokenTypeIssuer:
		return p.EmployeeID != "" && p.EmployeeID == employeeID
	default:
		return false
	}
}
