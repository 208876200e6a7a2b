package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Refresher runs one snapshot refresh
type Refresher interface {
	Refresh(ctx context.Context) (*RefreshReport, error)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	refresher Refresher
	schedule  string
	timeout   time.Duration
	limiter   *RateLimitService
	logger    *logrus.Logger
}

// NewCronService creates a new CronService. Each scheduled refresh is bounded by timeout.
func NewCronService(refresher Refresher, schedule string, timeout time.Duration, logger *logrus.Logger) *CronService {
	// Seconds precision; descriptors such as "@every 15m" are also accepted
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:      c,
		refresher: refresher,
		schedule:  schedule,
		timeout:   timeout,
		logger:    logger,
	}
}

// WithRateLimitCleanup adds an hourly job that drops expired refresh rate-limit counters
func (s *CronService) WithRateLimitCleanup(limiter *RateLimitService) *CronService {
	s.limiter = limiter
	return s
}

// Start schedules the refresh job and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	if _, err := s.cron.AddFunc(s.schedule, s.refreshSnapshotJob); err != nil {
		return fmt.Errorf("failed to schedule snapshot refresh job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("✓ Scheduled: Snapshot refresh")

	if s.limiter != nil {
		if _, err := s.cron.AddFunc("@hourly", s.cleanupRateLimitsJob); err != nil {
			return fmt.Errorf("failed to schedule rate limit cleanup job: %w", err)
		}
		s.logger.Info("✓ Scheduled: Rate limit cleanup (hourly)")
	}

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")

	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

// refreshSnapshotJob rebuilds changed feeds and publishes a new snapshot
func (s *CronService) refreshSnapshotJob() {
	s.logger.Info("[CRON] Starting snapshot refresh job...")
	startTime := time.Now()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.refresher.Refresh(ctx)
	if errors.Is(err, ErrRefreshInProgress) {
		s.logger.Warn("[CRON] Skipped: a refresh is already running")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Snapshot refresh failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"generation": report.Generation,
		"duration":   time.Since(startTime).String(),
	}).Info("[CRON] ✓ Snapshot refresh completed")
}

// cleanupRateLimitsJob drops expired rate-limit counters
func (s *CronService) cleanupRateLimitsJob() {
	removed := s.limiter.CleanupExpiredRateLimits()
	s.logger.WithField("removed", removed).Debug("[CRON] Rate limit cleanup completed")
}

// RunRefreshNow runs the refresh job immediately
func (s *CronService) RunRefreshNow() {
	s.logger.Info("[MANUAL] Running snapshot refresh now...")
	s.refreshSnapshotJob()
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
		"schedule":  s.schedule,
		"jobs":      jobs,
	}
}
