package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/config"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/qr-attendance/internal/handler/http"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/cron"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/metrics"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/qrtoken"
	"github.com/cmlabs-hris/qr-attendance/internal/pkg/sse"
	"github.com/cmlabs-hris/qr-attendance/internal/repository/memory"
	"github.com/cmlabs-hris/qr-attendance/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/qr-attendance/internal/service/attendance"
	employeeService "github.com/cmlabs-hris/qr-attendance/internal/service/employee"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	tx        attendance.Transactor
	days      attendance.DayRecordRepository
	summaries attendance.MonthlySummaryRepository
	profiles  employee.ProfileRepository
	db        *database.DB
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

// run owns every resource the server needs. Deferred cleanups run in reverse, so the
// database pool closes only after the profile listener and the scheduler are gone.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := appHTTP.NewLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defaultLoc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.App.Timezone, err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	if st.db != nil {
		defer st.db.Close()
	}

	profileCache := employeeService.NewProfileCache(st.profiles, cfg.Cache.ProfileTTL).
		WithLookupTimeout(cfg.Scan.StoreTimeout)

	listenCtx, cancelListen := context.WithCancel(ctx)
	var listeners sync.WaitGroup
	defer func() {
		cancelListen()
		listeners.Wait()
	}()
	if st.db != nil {
		listeners.Go(func() {
			postgresql.WatchProfileChanges(listenCtx, st.db, profileCache.Invalidate, profileCache.InvalidateAll, postgresql.DefaultListenerBackoff)
		})
	}

	codec := qrtoken.NewHMACCodec(cfg.QR.Secret, qrtoken.WithValidityWindow(cfg.QR.ValidityWindow))
	var replayGuard *qrtoken.ReplayGuard
	if cfg.QR.ReplayGuard {
		replayGuard = qrtoken.NewReplayGuard(cfg.QR.ValidityWindow)
	}
	debouncer := attendanceService.NewDebouncer(cfg.Scan.DebounceWindow)

	machine := attendanceService.NewStateMachine(attendanceService.NewOvertimeCalculator())
	aggregator := attendanceService.NewSummaryAggregator(st.summaries)
	recorder := attendanceService.NewRecorder(st.tx, st.days, machine, aggregator, defaultLoc)

	hub := sse.NewHub()
	collector := metrics.New()

	scanService := attendanceService.NewScanService(
		codec,
		replayGuard,
		debouncer,
		profileCache,
		recorder,
		st.days,
		st.summaries,
		hub,
		collector,
		cfg.Scan.StoreTimeout,
		defaultLoc,
	)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.StationExpiration, cfg.JWT.IssuerExpiration)

	attendanceHandler := appHTTP.NewAttendanceHandler(scanService)
	streamHandler := appHTTP.NewStreamHandler(JWTService, hub)

	router := appHTTP.NewRouter(cfg.App, logger, JWTService, collector, attendanceHandler, streamHandler)

	scheduler := cron.NewScheduler(ctx)
	cron.NewHousekeepingJobs(profileCache, replayGuard, debouncer).RegisterJobs(scheduler, cfg.Cache.HousekeepingInterval)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		slog.Info("Shutting down server")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	return runErr
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		directory := memory.NewDirectory()
		if cfg.Storage.SeedFixtures {
			for _, p := range fixtures.GetDefaultProfiles() {
				if err := directory.Put(p); err != nil {
					return stores{}, fmt.Errorf("seed profile %s: %w", p.ID, err)
				}
			}
			slog.Info("Seeded demo employee profiles", "driver", "memory")
		}
		return stores{tx: store, days: store, summaries: store, profiles: directory}, nil

	case "postgres":
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolSize{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return stores{}, fmt.Errorf("connect to database: %w", err)
		}

		if cfg.Storage.RunMigrations {
			if err := postgresql.Migrate(ctx, db); err != nil {
				db.Close()
				return stores{}, fmt.Errorf("run migrations: %w", err)
			}
		}

		profiles := postgresql.NewEmployeeProfileRepository(db)
		if cfg.Storage.SeedFixtures {
			for _, p := range fixtures.GetDefaultProfiles() {
				if err := profiles.Save(ctx, p); err != nil {
					db.Close()
					return stores{}, fmt.Errorf("seed profile %s: %w", p.ID, err)
				}
			}
			slog.Info("Seeded demo employee profiles", "driver", "postgres")
		}

		return stores{
			tx:        postgresql.NewTransactor(db),
			days:      postgresql.NewDayRecordRepository(db),
			summaries: postgresql.NewMonthlySummaryRepository(db),
			profiles:  profiles,
			db:        db,
		}, nil

	default:
		return stores{}, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
