package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/notifications"
	"github.com/creatorlab/viralbot/internal/reports"
	"github.com/creatorlab/viralbot/internal/runlock"
	"github.com/creatorlab/viralbot/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSyncer is a mock implementation of Syncer
type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) RunSync(ctx context.Context, userID string) (*models.SyncResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncResult), args.Error(1)
}

// MockReporter is a mock implementation of Reporter
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Generate(ctx context.Context, userID string) (*models.WeeklyReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeeklyReport), args.Error(1)
}

// MockAlerter is a mock implementation of notifications.NotificationInterface
type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) SendReport(ctx context.Context, report *models.WeeklyReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockAlerter) SendAlert(ctx context.Context, alert *notifications.Alert) error {
	return m.Called(ctx, alert).Error(0)
}

var defaultOpts = Options{
	SyncSchedule:   "0 0 */6 * * *",
	ReportSchedule: "0 0 9 * * MON",
	UserID:         "user-1",
}

func TestStart(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		withReport  bool
		wantErr     bool
		wantEntries int
	}{
		{name: "Both jobs", opts: defaultOpts, withReport: true, wantEntries: 2},
		{name: "No reporter", opts: defaultOpts, withReport: false, wantEntries: 1},
		{name: "Invalid sync schedule", opts: Options{SyncSchedule: "every day", ReportSchedule: "0 0 9 * * MON"}, withReport: true, wantErr: true},
		{name: "Invalid report schedule", opts: Options{SyncSchedule: "0 0 */6 * * *", ReportSchedule: "monday"}, withReport: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reporter Reporter
			if tt.withReport {
				reporter = new(MockReporter)
			}
			s := NewService(tt.opts, new(MockSyncer), reporter, nil)
			err := s.Start()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Stop()
			assert.Equal(t, tt.wantEntries, s.Entries())
		})
	}
}

func TestRunSync_AlertsOnFatalError(t *testing.T) {
	syncer := new(MockSyncer)
	alerter := new(MockAlerter)
	cfgErr := &tokens.ConfigurationError{Message: "no Instagram token configured"}
	syncer.On("RunSync", mock.Anything, "user-1").Return(nil, cfgErr)
	alerter.On("SendAlert", mock.Anything, mock.MatchedBy(func(a *notifications.Alert) bool {
		return a.Type == "sync_failed" && a.UserID == "user-1"
	})).Return(nil)

	s := NewService(defaultOpts, syncer, nil, alerter)
	s.runSync()

	alerter.AssertExpectations(t)
}

func TestRunSync_LockedIsNotAlerted(t *testing.T) {
	syncer := new(MockSyncer)
	alerter := new(MockAlerter)
	syncer.On("RunSync", mock.Anything, "user-1").Return(nil, runlock.ErrLocked)

	s := NewService(defaultOpts, syncer, nil, alerter)
	s.runSync()

	alerter.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything)
}

func TestRunSync_Success(t *testing.T) {
	syncer := new(MockSyncer)
	syncer.On("RunSync", mock.Anything, "user-1").Return(&models.SyncResult{Message: "Synced 3 posts from Instagram"}, nil)

	s := NewService(defaultOpts, syncer, nil, nil)
	s.runSync()

	syncer.AssertExpectations(t)
}

func TestRunReport(t *testing.T) {
	tests := []struct {
		name      string
		report    *models.WeeklyReport
		err       error
		wantAlert bool
	}{
		{name: "Success", report: &models.WeeklyReport{ID: "r-1", WeekStart: time.Now()}},
		{name: "Insufficient data is skipped", err: &reports.InsufficientDataError{LookbackDays: 30}},
		{name: "Generation failure alerts", err: &reports.ReportGenerationError{Err: errors.New("schema mismatch")}, wantAlert: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reporter := new(MockReporter)
			alerter := new(MockAlerter)
			reporter.On("Generate", mock.Anything, "user-1").Return(tt.report, tt.err)
			alerter.On("SendAlert", mock.Anything, mock.Anything).Return(nil)

			s := NewService(defaultOpts, new(MockSyncer), reporter, alerter)
			s.runReport()

			if tt.wantAlert {
				alerter.AssertCalled(t, "SendAlert", mock.Anything, mock.Anything)
			} else {
				alerter.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything)
			}
		})
	}
}
