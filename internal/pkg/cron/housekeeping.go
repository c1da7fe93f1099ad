package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/pkg/qrtoken"
	attendanceService "github.com/cmlabs-hris/qr-attendance/internal/service/attendance"
	employeeService "github.com/cmlabs-hris/qr-attendance/internal/service/employee"
)

// HousekeepingJobs evicts expired entries from the in-process caches of the scan path.
// Any of the caches may be nil when its feature is disabled.
type HousekeepingJobs struct {
	profiles  *employeeService.ProfileCache
	replay    *qrtoken.ReplayGuard
	debouncer *attendanceService.Debouncer
	now       func() time.Time
}

func NewHousekeepingJobs(
	profiles *employeeService.ProfileCache,
	replay *qrtoken.ReplayGuard,
	debouncer *attendanceService.Debouncer,
) *HousekeepingJobs {
	return &HousekeepingJobs{
		profiles:  profiles,
		replay:    replay,
		debouncer: debouncer,
		now:       time.Now,
	}
}

func (j *HousekeepingJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	if j.profiles != nil {
		scheduler.AddJob("purge_profile_cache", interval, j.PurgeProfileCache)
	}
	if j.replay != nil {
		scheduler.AddJob("purge_consumed_nonces", interval, j.PurgeConsumedNonces)
	}
	if j.debouncer != nil {
		scheduler.AddJob("purge_debounce_keys", interval, j.PurgeDebounceKeys)
	}
}

func (j *HousekeepingJobs) PurgeProfileCache(ctx context.Context) error {
	if removed := j.profiles.Purge(); removed > 0 {
		slog.Debug("Cron: purged profile cache", "removed", removed)
	}
	return nil
}

func (j *HousekeepingJobs) PurgeConsumedNonces(ctx context.Context) error {
	if removed := j.replay.Purge(j.now()); removed > 0 {
		slog.Debug("Cron: purged consumed nonces", "removed", removed)
	}
	return nil
}

func (j *HousekeepingJobs) PurgeDebounceKeys(ctx context.Context) error {
	if removed := j.debouncer.Purge(j.now()); removed > 0 {
		slog.Debug("Cron: purged debounce keys", "removed", removed)
	}
	return nil
}
