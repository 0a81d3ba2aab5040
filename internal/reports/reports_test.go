package reports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/notifications"
	"github.com/creatorlab/viralbot/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) PostsSince(ctx context.Context, userID string, since time.Time) ([]models.Post, error) {
	args := m.Called(ctx, userID, since)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockStore) RecentReports(ctx context.Context, userID string, limit int) ([]models.WeeklyReport, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.WeeklyReport), args.Error(1)
}

func (m *MockStore) InsertReport(ctx context.Context, report *models.WeeklyReport) error {
	args := m.Called(ctx, report)
	if report.ID == "" {
		report.ID = "r-new"
	}
	return args.Error(0)
}

// MockWriter is a mock implementation of Writer
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteReport(ctx context.Context, prompt string) (*models.ReportContent, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportContent), args.Error(1)
}

// MockNotifier is a mock implementation of notifications.NotificationInterface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendReport(ctx context.Context, report *models.WeeklyReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockNotifier) SendAlert(ctx context.Context, alert *notifications.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func strPtr(s string) *string { return &s }

// Wednesday 2026-10-14 10:00 UTC
var fixedNow = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func windowPosts() []models.Post {
	return []models.Post{
		{
			ID: "p-3", Platform: models.PlatformInstagram, PostDate: time.Date(2026, 10, 12, 18, 0, 0, 0, time.UTC),
			Caption: strPtr("Studio tour"), Format: models.FormatReel,
			Views: 5000, Reach: 4000, Likes: 300, Comments: 20, Saves: 80, Shares: 60, EngagementRate: 11.5,
			ContentPillar: strPtr("behind the scenes"),
		},
		{
			ID: "p-2", Platform: models.PlatformInstagram, PostDate: time.Date(2026, 10, 5, 18, 0, 0, 0, time.UTC),
			Format: models.FormatCarousel,
			Views: 1000, Reach: 900, Likes: 50, Comments: 5, Saves: 30, Shares: 2, EngagementRate: 9.6667,
		},
		{
			ID: "p-1", Platform: models.PlatformInstagram, PostDate: time.Date(2026, 9, 28, 18, 0, 0, 0, time.UTC),
			Caption: strPtr("Morning routine"), Format: models.FormatReel,
			Views: 3000, Reach: 2500, Likes: 200, Comments: 10, Saves: 40, Shares: 30, EngagementRate: 11.5,
		},
	}
}

func sampleContent() *models.ReportContent {
	return &models.ReportContent{
		Summary:       "Reels carried the week.",
		WhatWorked:    []models.WorkedItem{{PostCaption: "Studio tour", Reason: "Strong hook", Pattern: "POV"}},
		WhatDidntWork: []models.MissItem{{PostCaption: "No caption", Issue: "Low shares", Improvement: "Add a CTA"}},
		Patterns: []models.Pattern{
			{Observation: "Reels get shared", Evidence: "60 shares", Recommendation: "More reels"},
		},
		ViralOpportunities: []models.ViralOpportunity{
			{Idea: "Duet a trending audio", HookSuggestion: "Wait for it", Format: "reel", WhyItFits: "fit", ExpectedOutcome: "2x"},
			{Idea: "Before/after edit", HookSuggestion: "Guess", Format: "reel", WhyItFits: "fit", ExpectedOutcome: "2x"},
			{Idea: "Gear checklist", HookSuggestion: "Save this", Format: "carousel", WhyItFits: "fit", ExpectedOutcome: "saves"},
		},
		NextWeekPlan: []models.PlanDay{{Day: "Monday", ContentIdea: "Studio tour 2", Format: "reel", Hook: "POV", Type: "viral attempt"}},
		SkillFocus:   []models.SkillFocus{{Skill: "Hooks", Why: "Retention", Action: "Script 3 hooks"}},
		ReinforcementNotes: []models.ReinforcementNote{
			{Text: "6pm posts outperform", Type: "validation"},
		},
	}
}

type fixture struct {
	store     *MockStore
	writer    *MockWriter
	notifier  *MockNotifier
	generator *Generator
}

func newFixture(t *testing.T, archive storage.StorageInterface) *fixture {
	t.Helper()
	f := &fixture{store: new(MockStore), writer: new(MockWriter), notifier: new(MockNotifier)}
	f.generator = NewGenerator(Dependencies{
		Store:    f.store,
		Writer:   f.writer,
		Archive:  archive,
		Notifier: f.notifier,
		Logger:   quietLogger(),
	}, Options{
		LookbackDays: 30,
		Now:          func() time.Time { return fixedNow },
	})
	return f
}

func TestGenerate_NoPosts(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("PostsSince", mock.Anything, "user-1", mock.Anything).Return([]models.Post{}, nil)

	report, err := f.generator.Generate(context.Background(), "user-1")

	assert.Nil(t, report)
	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 30, insufficient.LookbackDays)
	f.writer.AssertNotCalled(t, "WriteReport", mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "InsertReport", mock.Anything, mock.Anything)
}

func TestGenerate_WriterFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("PostsSince", mock.Anything, "user-1", mock.Anything).Return(windowPosts(), nil)
	f.store.On("RecentReports", mock.Anything, "user-1", 3).Return([]models.WeeklyReport{}, nil)
	f.writer.On("WriteReport", mock.Anything, mock.Anything).Return(nil, errors.New("schema mismatch"))

	report, err := f.generator.Generate(context.Background(), "user-1")

	assert.Nil(t, report)
	var genErr *ReportGenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Contains(t, genErr.Error(), "schema mismatch")
	f.store.AssertNotCalled(t, "InsertReport", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "SendReport", mock.Anything, mock.Anything)
}

func TestGenerate_Success(t *testing.T) {
	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	f := newFixture(t, archive)
	prior := []models.WeeklyReport{{
		WeekStart:       time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		Recommendations: []models.ReportItem{{Text: "Post more carousels", Type: "viral"}},
	}}

	f.store.On("PostsSince", mock.Anything, "user-1", time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)).Return(windowPosts(), nil)
	f.store.On("RecentReports", mock.Anything, "user-1", 3).Return(prior, nil)
	f.writer.On("WriteReport", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Post more carousels") && strings.Contains(prompt, `"Studio tour"`)
	})).Return(sampleContent(), nil)
	f.store.On("InsertReport", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("SendReport", mock.Anything, mock.Anything).Return(nil)

	report, err := f.generator.Generate(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), report.WeekStart)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), report.WeekEnd)
	assert.Equal(t, int64(9000), report.TotalViews)
	assert.Equal(t, int64(550), report.TotalLikes)
	assert.Equal(t, int64(35), report.TotalComments)
	assert.Equal(t, int64(150), report.TotalSaves)
	assert.Equal(t, int64(92), report.TotalShares)
	assert.InDelta(t, 10.8889, report.AvgEngagementRate, 0.0001)
	require.NotNil(t, report.TopPostID)
	assert.Equal(t, "p-3", *report.TopPostID)

	assert.Equal(t, []models.ReportItem{
		{Text: "Reels get shared", Type: "pattern"},
		{Text: "6pm posts outperform", Type: "validation"},
	}, report.AIInsights)
	assert.Equal(t, []models.ReportItem{
		{Text: "Duet a trending audio", Type: "viral"},
		{Text: "Before/after edit", Type: "viral"},
		{Text: "Gear checklist", Type: "viral"},
		{Text: "Hooks: Script 3 hooks", Type: "skill"},
	}, report.Recommendations)
	assert.Len(t, report.ContentMix.ViralOpportunities, 3)
	assert.Len(t, report.ContentMix.WhatDidntWork, 1)

	f.store.AssertExpectations(t)
	f.notifier.AssertExpectations(t)

	names, err := archive.List(context.Background(), "reports/user-1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/user-1/2026-10-12.json"}, names)
}

func TestGenerate_DeliveryFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("PostsSince", mock.Anything, "user-1", mock.Anything).Return(windowPosts(), nil)
	f.store.On("RecentReports", mock.Anything, "user-1", 3).Return([]models.WeeklyReport{}, errors.New("db hiccup"))
	f.writer.On("WriteReport", mock.Anything, mock.Anything).Return(sampleContent(), nil)
	f.store.On("InsertReport", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("SendReport", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	report, err := f.generator.Generate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "r-new", report.ID)
}

func TestGenerate_InsertFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("PostsSince", mock.Anything, "user-1", mock.Anything).Return(windowPosts(), nil)
	f.store.On("RecentReports", mock.Anything, "user-1", 3).Return([]models.WeeklyReport{}, nil)
	f.writer.On("WriteReport", mock.Anything, mock.Anything).Return(sampleContent(), nil)
	f.store.On("InsertReport", mock.Anything, mock.Anything).Return(errors.New("constraint"))

	_, err := f.generator.Generate(context.Background(), "user-1")
	require.Error(t, err)
	f.notifier.AssertNotCalled(t, "SendReport", mock.Anything, mock.Anything)
}

func TestBuildPrompt(t *testing.T) {
	posts := windowPosts()

	first := BuildPrompt(posts, nil)
	assert.Equal(t, first, BuildPrompt(posts, nil))
	assert.Contains(t, first, `[2026-10-12T18:00:00Z] instagram | "Studio tour" | Views: 5000, Reach: 4000, Likes: 300, Comments: 20, Saves: 80, Shares: 60, Follows: 0 | Eng: 11.5%`)
	assert.Contains(t, first, `"No caption"`)
	assert.Contains(t, first, "Pillar: behind the scenes")
	assert.Contains(t, first, "Hook: unset")
	assert.NotContains(t, first, "Previous report recommendations")

	// Posts keep the caller's order
	assert.Less(t, strings.Index(first, "Studio tour"), strings.Index(first, "Morning routine"))

	withPrior := BuildPrompt(posts, []models.WeeklyReport{
		{WeekStart: time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC), Recommendations: []models.ReportItem{{Text: "Try duets", Type: "viral"}}},
		{WeekStart: time.Date(2026, 9, 28, 0, 0, 0, 0, time.UTC)},
	})
	assert.Contains(t, withPrior, "Previous report recommendations:\nWeek of 2026-10-05: [{\"text\":\"Try duets\",\"type\":\"viral\"}]\n")
	assert.NotContains(t, withPrior, "Week of 2026-09-28")
}

func TestWeekBounds(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	tests := []struct {
		name      string
		now       time.Time
		loc       *time.Location
		wantStart string
		wantEnd   string
	}{
		{"Wednesday", fixedNow, time.UTC, "2026-10-12", "2026-10-18"},
		{"Monday midnight", time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), time.UTC, "2026-10-12", "2026-10-18"},
		{"Sunday belongs to the previous Monday", time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC), time.UTC, "2026-10-12", "2026-10-18"},
		{"Local timezone crosses into next week", time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC), tokyo, "2026-10-19", "2026-10-25"},
		{"Nil location defaults to UTC", fixedNow, nil, "2026-10-12", "2026-10-18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WeekBounds(tt.now, tt.loc)
			assert.Equal(t, tt.wantStart, start.Format("2006-01-02"))
			assert.Equal(t, tt.wantEnd, end.Format("2006-01-02"))
			assert.Equal(t, time.Monday, start.Weekday())
		})
	}
}
