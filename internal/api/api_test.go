package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/reports"
	"github.com/creatorlab/viralbot/internal/runlock"
	"github.com/creatorlab/viralbot/internal/sources"
	"github.com/creatorlab/viralbot/internal/store"
	"github.com/creatorlab/viralbot/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSyncRunner is a mock implementation of SyncRunner
type MockSyncRunner struct {
	mock.Mock
}

func (m *MockSyncRunner) RunSync(ctx context.Context, userID string) (*models.SyncResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncResult), args.Error(1)
}

func (m *MockSyncRunner) GetMetrics() string {
	return m.Called().String(0)
}

// MockReportGenerator is a mock implementation of ReportGenerator
type MockReportGenerator struct {
	mock.Mock
}

func (m *MockReportGenerator) Generate(ctx context.Context, userID string) (*models.WeeklyReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeeklyReport), args.Error(1)
}

// MockTokenSettings is a mock implementation of TokenSettings
type MockTokenSettings struct {
	mock.Mock
}

func (m *MockTokenSettings) Status(ctx context.Context) (map[string]tokens.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]tokens.Status), args.Error(1)
}

func (m *MockTokenSettings) Save(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) RecentPosts(ctx context.Context, userID string, limit int) ([]models.Post, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockStore) RecentReports(ctx context.Context, userID string, limit int) ([]models.WeeklyReport, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.WeeklyReport), args.Error(1)
}

func (m *MockStore) LatestReport(ctx context.Context, userID string) (*models.WeeklyReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeeklyReport), args.Error(1)
}

func (m *MockStore) GetReport(ctx context.Context, userID, id string) (*models.WeeklyReport, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeeklyReport), args.Error(1)
}

func (m *MockStore) CreateTrend(ctx context.Context, trend *models.Trend) error {
	args := m.Called(ctx, trend)
	if args.Error(0) == nil {
		trend.ID = "t-1"
		trend.Status = models.TrendNew
	}
	return args.Error(0)
}

func (m *MockStore) ListTrends(ctx context.Context, userID string) ([]models.Trend, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Trend), args.Error(1)
}

func (m *MockStore) UpdateTrendStatus(ctx context.Context, userID, id string, status models.TrendStatus) (*models.Trend, error) {
	args := m.Called(ctx, userID, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trend), args.Error(1)
}

type fixture struct {
	sync     *MockSyncRunner
	reports  *MockReportGenerator
	settings *MockTokenSettings
	store    *MockStore
	handler  http.Handler
}

func newFixture(withReports bool) *fixture {
	f := &fixture{
		sync:     new(MockSyncRunner),
		reports:  new(MockReportGenerator),
		settings: new(MockTokenSettings),
		store:    new(MockStore),
	}
	var generator ReportGenerator
	if withReports {
		generator = f.reports
	}
	f.handler = NewServer(f.sync, generator, f.settings, f.store, Options{DefaultUserID: "default-user"}).Router()
	return f
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(true)
	f.store.On("Ping", mock.Anything).Return(nil).Once()
	f.store.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()

	rec := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "connection refused", decode(t, rec)["database"])
}

func TestMetrics(t *testing.T) {
	f := newFixture(true)
	f.sync.On("GetMetrics").Return(`{"runs": 3}`)

	rec := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs": 3}`, rec.Body.String())
}

func TestSync(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		wantUser   string
		result     *models.SyncResult
		err        error
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "Summary for header user",
			headers:    map[string]string{UserHeader: "user-42"},
			wantUser:   "user-42",
			result:     &models.SyncResult{Synced: 9, Errors: 1, Message: "Synced 9 posts from Instagram (1 errors)"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, float64(9), body["synced"])
				assert.Equal(t, float64(1), body["errors"])
			},
		},
		{
			name:       "Default user without header",
			wantUser:   "default-user",
			result:     &models.SyncResult{Message: "No media found on this Instagram account"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Missing credentials",
			wantUser:   "default-user",
			err:        &tokens.ConfigurationError{Message: "no Instagram token configured", Hint: "save a token"},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "no Instagram token configured", body["error"])
				assert.Equal(t, "save a token", body["hint"])
			},
		},
		{
			name:     "Discovery exhausted",
			wantUser: "default-user",
			err: &sources.DiscoveryError{Attempts: []sources.Attempt{
				{Strategy: sources.StrategyPageMe, Error: "Invalid OAuth access token"},
				{Strategy: sources.StrategyInstagramMe, Error: "Unsupported request"},
			}},
			wantStatus: http.StatusFailedDependency,
			check: func(t *testing.T, body map[string]any) {
				assert.Len(t, body["attempts"], 2)
				assert.NotEmpty(t, body["hint"])
			},
		},
		{
			name:       "Run in progress",
			wantUser:   "default-user",
			err:        runlock.ErrLocked,
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)
			f.sync.On("RunSync", mock.Anything, tt.wantUser).Return(tt.result, tt.err)

			rec := f.do(http.MethodPost, "/sync", "", tt.headers)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.check != nil {
				tt.check(t, decode(t, rec))
			}
			f.sync.AssertExpectations(t)
		})
	}
}

func TestGenerateReport(t *testing.T) {
	t.Run("Not configured", func(t *testing.T) {
		f := newFixture(false)
		rec := f.do(http.MethodPost, "/reports", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "set OPENAI_API_KEY", decode(t, rec)["hint"])
	})

	tests := []struct {
		name       string
		report     *models.WeeklyReport
		err        error
		wantStatus int
	}{
		{name: "Created", report: &models.WeeklyReport{ID: "r-1", Summary: "ok"}, wantStatus: http.StatusCreated},
		{name: "No posts", err: &reports.InsufficientDataError{LookbackDays: 30}, wantStatus: http.StatusBadRequest},
		{name: "Writer failed", err: &reports.ReportGenerationError{Err: errors.New("bad schema")}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)
			f.reports.On("Generate", mock.Anything, "default-user").Return(tt.report, tt.err)

			rec := f.do(http.MethodPost, "/reports", "", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			if tt.err == nil {
				assert.Equal(t, "r-1", body["report"].(map[string]any)["id"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestListReports(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantStatus int
	}{
		{name: "Default limit", query: "", wantLimit: 10, wantStatus: http.StatusOK},
		{name: "Custom limit", query: "?limit=3", wantLimit: 3, wantStatus: http.StatusOK},
		{name: "Capped limit", query: "?limit=500", wantLimit: 52, wantStatus: http.StatusOK},
		{name: "Invalid limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)
			f.store.On("RecentReports", mock.Anything, "default-user", tt.wantLimit).
				Return([]models.WeeklyReport(nil), nil)

			rec := f.do(http.MethodGet, "/reports"+tt.query, "", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, []any{}, decode(t, rec)["reports"])
			}
		})
	}
}

func TestGetReport_NotFound(t *testing.T) {
	f := newFixture(true)
	f.store.On("GetReport", mock.Anything, "default-user", "missing").Return(nil, store.ErrNotFound)

	rec := f.do(http.MethodGet, "/reports/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettings(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		f := newFixture(true)
		preview := "...abcdefgh"
		updated := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		f.settings.On("Status", mock.Anything).Return(map[string]tokens.Status{
			tokens.PageTokenKey: {Set: true, UpdatedAt: &updated, Preview: &preview},
			tokens.UserTokenKey: {},
		}, nil)

		rec := f.do(http.MethodGet, "/settings", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body[tokens.PageTokenKey].(map[string]any)["set"])
		assert.Equal(t, false, body[tokens.UserTokenKey].(map[string]any)["set"])
		assert.NotContains(t, rec.Body.String(), "value")
	})

	tests := []struct {
		name       string
		body       string
		saveErr    error
		wantStatus int
	}{
		{name: "Saved", body: `{"key":"instagram_page_token","value":"EAAG1234567890"}`, wantStatus: http.StatusOK},
		{name: "Bad JSON", body: `{`, wantStatus: http.StatusBadRequest},
		{
			name:       "Rejected value",
			body:       `{"key":"instagram_page_token","value":"short"}`,
			saveErr:    &tokens.ConfigurationError{Message: "invalid token value"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)
			f.settings.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(tt.saveErr)

			rec := f.do(http.MethodPost, "/settings", tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func samplePosts() []models.Post {
	pillar := "education"
	return []models.Post{
		{ID: "p-1", Views: 100, Reach: 100, Shares: 10, Saves: 5, EngagementRate: 20, ContentPillar: &pillar},
		{ID: "p-2", Views: 100, Reach: 100, Shares: 1, Saves: 1, EngagementRate: 4},
	}
}

func TestVirality(t *testing.T) {
	f := newFixture(true)
	f.store.On("RecentPosts", mock.Anything, "default-user", 500).Return(samplePosts(), nil)

	rec := f.do(http.MethodGet, "/virality", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Greater(t, body["score"], float64(0))
	assert.Equal(t, "p-1", body["best_viral_post"].(map[string]any)["id"])
}

func TestDashboard(t *testing.T) {
	t.Run("Without report", func(t *testing.T) {
		f := newFixture(true)
		f.store.On("RecentPosts", mock.Anything, "default-user", 500).Return(samplePosts(), nil)
		f.store.On("LatestReport", mock.Anything, "default-user").Return(nil, store.ErrNotFound)
		f.store.On("ListTrends", mock.Anything, "default-user").Return([]models.Trend{
			{ID: "t-1", Status: models.TrendWatching},
			{ID: "t-2", Status: models.TrendExpired},
		}, nil)

		rec := f.do(http.MethodGet, "/dashboard", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Nil(t, body["latest_report"])
		assert.Len(t, body["top_posts"], 2)
		assert.Len(t, body["trends"], 1)
		assert.Equal(t, float64(2), body["totals"].(map[string]any)["posts"])
	})

	t.Run("With report", func(t *testing.T) {
		f := newFixture(true)
		f.store.On("RecentPosts", mock.Anything, "default-user", 500).Return([]models.Post{}, nil)
		f.store.On("LatestReport", mock.Anything, "default-user").Return(&models.WeeklyReport{
			ID:      "r-1",
			Summary: "Reels carried the week.",
			ContentMix: models.ContentMix{
				ViralOpportunities: []models.ViralOpportunity{{Idea: "Duet"}},
			},
		}, nil)
		f.store.On("ListTrends", mock.Anything, "default-user").Return([]models.Trend{}, nil)

		rec := f.do(http.MethodGet, "/dashboard", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		latest := decode(t, rec)["latest_report"].(map[string]any)
		assert.Equal(t, "Reels carried the week.", latest["summary"])
		assert.Len(t, latest["viral_opportunities"], 1)
	})
}

func TestTrends(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		f := newFixture(true)
		f.store.On("CreateTrend", mock.Anything, mock.MatchedBy(func(tr *models.Trend) bool {
			return tr.UserID == "default-user" && tr.Title == "POV transitions" && tr.TrendType == models.TrendFormat
		})).Return(nil)

		rec := f.do(http.MethodPost, "/trends", `{"trend_type":"format","title":"POV transitions","relevance_score":80}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "new", decode(t, rec)["status"])
	})

	t.Run("Create invalid", func(t *testing.T) {
		f := newFixture(true)
		f.store.On("CreateTrend", mock.Anything, mock.Anything).
			Return(fmt.Errorf("%w: unknown trend type %q", store.ErrInvalidTrend, "meme"))

		rec := f.do(http.MethodPost, "/trends", `{"trend_type":"meme","title":"x"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("List", func(t *testing.T) {
		f := newFixture(true)
		f.store.On("ListTrends", mock.Anything, "default-user").Return([]models.Trend(nil), nil)

		rec := f.do(http.MethodGet, "/trends", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, decode(t, rec)["trends"])
	})

	tests := []struct {
		name       string
		body       string
		trend      *models.Trend
		err        error
		wantStatus int
	}{
		{name: "Advance", body: `{"status":"watching"}`, trend: &models.Trend{ID: "t-1", Status: models.TrendWatching}, wantStatus: http.StatusOK},
		{name: "Invalid transition", body: `{"status":"watching"}`, err: store.ErrInvalidTransition, wantStatus: http.StatusBadRequest},
		{name: "Unknown trend", body: `{"status":"acted"}`, err: store.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "Missing status", body: `{}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run("Update "+tt.name, func(t *testing.T) {
			f := newFixture(true)
			f.store.On("UpdateTrendStatus", mock.Anything, "default-user", "t-1", mock.Anything).Return(tt.trend, tt.err)

			rec := f.do(http.MethodPatch, "/trends/t-1", tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestMissingUser(t *testing.T) {
	f := &fixture{sync: new(MockSyncRunner), store: new(MockStore)}
	f.handler = NewServer(f.sync, nil, new(MockTokenSettings), f.store, Options{}).Router()
	f.store.On("Ping", mock.Anything).Return(nil)

	rec := f.do(http.MethodPost, "/sync", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.sync.AssertNotCalled(t, "RunSync", mock.Anything, mock.Anything)

	rec = f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(true)
	rec := f.do(http.MethodDelete, "/sync", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
