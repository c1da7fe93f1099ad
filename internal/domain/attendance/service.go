package attendance

import (
	"context"
)

// ScanService is the scan dispatcher exposed to transports.
type ScanService interface {
	// Scan verifies a decoded QR payload and applies it to the employee's day record.
	Scan(ctx context.Context, req ScanRequest) (ScanResponse, error)

	// IssueToken signs a fresh scan token for the employee.
	IssueToken(ctx context.Context, req IssueTokenRequest) (IssueTokenResponse, error)

	// GetDayRecord retrieves one employee's record for one date
	GetDayRecord(ctx context.Context, req GetDayRecordRequest) (DayRecordResponse, error)

	// GetMonthlySummary retrieves one employee's running totals for one month
	GetMonthlySummary(ctx context.Context, req GetMonthlySummaryRequest) (MonthlySummaryResponse, error)
}
