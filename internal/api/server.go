package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/reports"
	"github.com/creatorlab/viralbot/internal/runlock"
	"github.com/creatorlab/viralbot/internal/sources"
	"github.com/creatorlab/viralbot/internal/store"
	"github.com/creatorlab/viralbot/internal/tokens"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// UserHeader carries the caller's user id
const UserHeader = "X-User-ID"

// SyncRunner runs ingestion and exposes its run metrics
type SyncRunner interface {
	RunSync(ctx context.Context, userID string) (*models.SyncResult, error)
	GetMetrics() string
}

// ReportGenerator generates weekly reports
type ReportGenerator interface {
	Generate(ctx context.Context, userID string) (*models.WeeklyReport, error)
}

// TokenSettings manages stored provider tokens
type TokenSettings interface {
	Status(ctx context.Context) (map[string]tokens.Status, error)
	Save(ctx context.Context, key, value string) error
}

// Store is the read/write surface the handlers need
type Store interface {
	Ping(ctx context.Context) error
	RecentPosts(ctx context.Context, userID string, limit int) ([]models.Post, error)
	RecentReports(ctx context.Context, userID string, limit int) ([]models.WeeklyReport, error)
	LatestReport(ctx context.Context, userID string) (*models.WeeklyReport, error)
	GetReport(ctx context.Context, userID, id string) (*models.WeeklyReport, error)
	CreateTrend(ctx context.Context, trend *models.Trend) error
	ListTrends(ctx context.Context, userID string) ([]models.Trend, error)
	UpdateTrendStatus(ctx context.Context, userID, id string, status models.TrendStatus) (*models.Trend, error)
}

// Options tune the handlers
type Options struct {
	DefaultUserID string
	PostLimit     int
}

// Server holds the HTTP handlers. Reports may be nil when report
// generation is not configured.
type Server struct {
	sync     SyncRunner
	reports  ReportGenerator
	settings TokenSettings
	store    Store
	opts     Options
}

// NewServer creates the HTTP handlers
func NewServer(syncer SyncRunner, reporter ReportGenerator, settings TokenSettings, st Store, opts Options) *Server {
	if opts.PostLimit <= 0 {
		opts.PostLimit = 500
	}
	return &Server{sync: syncer, reports: reporter, settings: settings, store: st, opts: opts}
}

// Router registers every route
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/metrics", s.metrics).Methods(http.MethodGet)

	router.HandleFunc("/sync", s.runSync).Methods(http.MethodPost)

	router.HandleFunc("/reports", s.generateReport).Methods(http.MethodPost)
	router.HandleFunc("/reports", s.listReports).Methods(http.MethodGet)
	router.HandleFunc("/reports/{id}", s.getReport).Methods(http.MethodGet)

	router.HandleFunc("/settings", s.getSettings).Methods(http.MethodGet)
	router.HandleFunc("/settings", s.saveSetting).Methods(http.MethodPost)

	router.HandleFunc("/virality", s.virality).Methods(http.MethodGet)
	router.HandleFunc("/dashboard", s.dashboard).Methods(http.MethodGet)

	router.HandleFunc("/trends", s.listTrends).Methods(http.MethodGet)
	router.HandleFunc("/trends", s.createTrend).Methods(http.MethodPost)
	router.HandleFunc("/trends/{id}", s.updateTrend).Methods(http.MethodPatch)

	router.Use(loggingMiddleware, s.requireUser)
	return router
}

// requireUser rejects data routes when neither the header nor a default
// user id is available
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" && r.URL.Path != "/metrics" && s.userID(r) == "" {
			writeMessage(w, http.StatusBadRequest, "user id is required", "send the "+UserHeader+" header or set DEFAULT_USER_ID")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logrus.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Debug("HTTP request")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(UserHeader)); id != "" {
		return id
	}
	return s.opts.DefaultUserID
}

type errorBody struct {
	Error    string            `json:"error"`
	Hint     string            `json:"hint,omitempty"`
	Attempts []sources.Attempt `json:"attempts,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message, hint string) {
	writeJSON(w, status, errorBody{Error: message, Hint: hint})
}

// writeError maps domain errors onto status codes and {error, hint} bodies
func writeError(w http.ResponseWriter, err error) {
	var (
		cfgErr       *tokens.ConfigurationError
		discoveryErr *sources.DiscoveryError
		insufficient *reports.InsufficientDataError
		genErr       *reports.ReportGenerationError
	)

	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: cfgErr.Message, Hint: cfgErr.Hint})
	case errors.As(err, &discoveryErr):
		writeJSON(w, http.StatusFailedDependency, errorBody{
			Error:    "Could not find an Instagram account for the configured token",
			Hint:     "make sure the token belongs to a Facebook Page linked to an Instagram professional account",
			Attempts: discoveryErr.Attempts,
		})
	case errors.As(err, &insufficient):
		writeMessage(w, http.StatusBadRequest, insufficient.Error(), "run a sync first")
	case errors.As(err, &genErr):
		logrus.Errorf("Report generation failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to generate report", sources.RedactToken(genErr.Err.Error()))
	case errors.Is(err, runlock.ErrLocked):
		writeMessage(w, http.StatusConflict, err.Error(), "wait for the current run to finish")
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found", "")
	case errors.Is(err, store.ErrInvalidTrend), errors.Is(err, store.ErrInvalidTransition):
		writeMessage(w, http.StatusBadRequest, err.Error(), "")
	default:
		logrus.Errorf("Request failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, sources.RedactToken(err.Error()), "")
	}
}
