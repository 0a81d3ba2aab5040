package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/notifications"
	"github.com/creatorlab/viralbot/internal/reports"
	"github.com/creatorlab/viralbot/internal/runlock"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Syncer runs an ingestion pass for a user
type Syncer interface {
	RunSync(ctx context.Context, userID string) (*models.SyncResult, error)
}

// Reporter generates a weekly report for a user
type Reporter interface {
	Generate(ctx context.Context, userID string) (*models.WeeklyReport, error)
}

// Options configure the schedules. An empty report schedule disables the
// report job (e.g. when no model API key is configured).
type Options struct {
	SyncSchedule   string
	ReportSchedule string
	UserID         string
	Location       *time.Location
	JobTimeout     time.Duration
}

// Service handles scheduling of sync and report runs
type Service struct {
	opts     Options
	syncer   Syncer
	reporter Reporter
	alerter  notifications.NotificationInterface
	cron     *cron.Cron
}

// NewService creates a new scheduler service. reporter and alerter may be nil.
func NewService(opts Options, syncer Syncer, reporter Reporter, alerter notifications.NotificationInterface) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Minute
	}
	return &Service{
		opts:     opts,
		syncer:   syncer,
		reporter: reporter,
		alerter:  alerter,
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(opts.Location)),
	}
}

// Start registers the jobs and begins the schedule
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.opts.SyncSchedule, s.runSync); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.opts.SyncSchedule, err)
	}

	if s.reporter != nil && s.opts.ReportSchedule != "" {
		if _, err := s.cron.AddFunc(s.opts.ReportSchedule, s.runReport); err != nil {
			return fmt.Errorf("invalid report schedule %q: %w", s.opts.ReportSchedule, err)
		}
	} else {
		logrus.Warn("Weekly report job disabled")
	}

	s.cron.Start()
	logrus.Infof("Scheduler started (sync: %s, report: %s, tz: %s)",
		s.opts.SyncSchedule, s.opts.ReportSchedule, s.opts.Location)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}

// Entries returns the number of registered jobs
func (s *Service) Entries() int {
	return len(s.cron.Entries())
}

func (s *Service) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	logrus.Info("Starting scheduled sync run")
	result, err := s.syncer.RunSync(ctx, s.opts.UserID)
	if err != nil {
		s.fail(ctx, "sync_failed", "Scheduled sync failed", err)
		return
	}
	logrus.Infof("Scheduled sync finished: %s", result.Message)
}

func (s *Service) runReport() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	logrus.Info("Starting scheduled report generation")
	report, err := s.reporter.Generate(ctx, s.opts.UserID)
	if err != nil {
		var insufficient *reports.InsufficientDataError
		if errors.As(err, &insufficient) {
			logrus.Warnf("Skipping weekly report: %v", err)
			return
		}
		s.fail(ctx, "report_failed", "Weekly report generation failed", err)
		return
	}
	logrus.Infof("Scheduled report %s generated for week of %s", report.ID, report.WeekStart.Format("2006-01-02"))
}

func (s *Service) fail(ctx context.Context, kind, title string, err error) {
	if errors.Is(err, runlock.ErrLocked) {
		logrus.Infof("%s skipped: %v", title, err)
		return
	}

	logrus.Errorf("%s: %v", title, err)
	if s.alerter == nil {
		return
	}
	alert := &notifications.Alert{
		Type:    kind,
		Title:   title,
		Message: err.Error(),
		UserID:  s.opts.UserID,
	}
	if alertErr := s.alerter.SendAlert(ctx, alert); alertErr != nil {
		logrus.Errorf("Failed to send alert: %v", alertErr)
	}
}
