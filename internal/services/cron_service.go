package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/state"
)

const jobTimeout = 30 * time.Second

// UpkeepSession is the part of the session store the scheduled jobs need
type UpkeepSession interface {
	gateway.Session
	LoggedIn() bool
	HasRefreshToken() bool
	ExpiresWithin(window time.Duration) bool
	Refresh(ctx context.Context) (string, error)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron    *cron.Cron
	session UpkeepSession
	api     *gateway.API
	vault   *state.Vault
	cfg     config.JobsConfig
	logger  *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(session UpkeepSession, api *gateway.API, vault *state.Vault, cfg config.JobsConfig, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:    cron.New(cron.WithSeconds()),
		session: session,
		api:     api,
		vault:   vault,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start schedules the jobs and starts the scheduler.
// Schedules use the seconds field: "0 * * * * *" is every minute.
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Job 1: Refresh the access token before it expires
	if _, err := s.cron.AddFunc(s.cfg.TokenRefreshSchedule, s.tokenUpkeepJob); err != nil {
		return fmt.Errorf("failed to schedule token upkeep job: %w", err)
	}
	s.logger.WithField("schedule", s.cfg.TokenRefreshSchedule).Info("Scheduled: token upkeep")

	// Job 2: Re-fetch the cached recent booking
	if _, err := s.cron.AddFunc(s.cfg.BookingRevalidateSchedule, s.revalidateJob); err != nil {
		return fmt.Errorf("failed to schedule booking revalidation job: %w", err)
	}
	s.logger.WithField("schedule", s.cfg.BookingRevalidateSchedule).Info("Scheduled: recent booking revalidation")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	<-s.cron.Stop().Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) tokenUpkeepJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.upkeepToken(ctx); err != nil {
		s.logger.WithError(err).Warn("[CRON] Token upkeep failed")
	}
}

func (s *CronService) revalidateJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.revalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("[CRON] Recent booking revalidation failed")
	}
}

// upkeepToken refreshes when the token expires within the configured skew.
// It reports whether a refresh happened.
func (s *CronService) upkeepToken(ctx context.Context) (bool, error) {
	if !s.session.LoggedIn() || !s.session.HasRefreshToken() {
		return false, nil
	}
	if !s.session.ExpiresWithin(s.cfg.TokenRefreshSkew) {
		return false, nil
	}

	start := time.Now()
	if _, err := s.session.Refresh(ctx); err != nil {
		return false, err
	}
	s.logger.WithField("duration", time.Since(start)).Info("[CRON] Access token refreshed")
	return true, nil
}

// revalidate re-fetches the cached recent booking and stores the fresh copy.
// It reports whether the cache was updated.
func (s *CronService) revalidate(ctx context.Context) (bool, error) {
	if !s.session.LoggedIn() {
		return false, nil
	}

	recent, err := s.vault.LoadRecentBooking(ctx)
	if err != nil {
		return false, err
	}
	if recent == nil || recent.BookingID.IsZero() {
		return false, nil
	}

	booking, err := s.api.Bookings.Get(gateway.WithSession(ctx, s.session), recent.BookingID)
	if err != nil {
		return false, err
	}
	if booking == nil {
		return false, nil
	}

	recent.Booking = booking
	recent.CreatedAt = time.Now()
	if err := s.vault.SaveRecentBooking(ctx, *recent); err != nil {
		return false, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": recent.BookingID,
		"status":     booking.Status,
	}).Debug("[CRON] Recent booking revalidated")
	return true, nil
}

// RunTokenUpkeepNow runs the token upkeep job immediately
func (s *CronService) RunTokenUpkeepNow(ctx context.Context) (bool, error) {
	s.logger.Info("[MANUAL] Running token upkeep now...")
	return s.upkeepToken(ctx)
}

// RunRevalidateNow runs the recent booking revalidation immediately
func (s *CronService) RunRevalidateNow(ctx context.Context) (bool, error) {
	s.logger.Info("[MANUAL] Running recent booking revalidation now...")
	return s.revalidate(ctx)
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
