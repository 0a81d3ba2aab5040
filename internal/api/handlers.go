package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/creatorlab/viralbot/internal/analytics"
	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/store"
	"github.com/gorilla/mux"
)

const (
	defaultReportLimit = 10
	maxReportLimit     = 52
	topPostCount       = 5
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{
		"status":    "healthy",
		"database":  "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if err := s.store.Ping(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = err.Error()
	}
	writeJSON(w, status, body)
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.sync.GetMetrics()))
}

// runSync runs a sync to completion and returns its summary. Partial
// failures are reported inside the summary with status 200.
func (s *Server) runSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.sync.RunSync(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Report generation is not configured", "set OPENAI_API_KEY")
		return
	}
	report, err := s.reports.Generate(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"report": report})
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "invalid limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxReportLimit)
	}

	list, err := s.store.RecentReports(r.Context(), s.userID(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []models.WeeklyReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": list})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetReport(r.Context(), s.userID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	status, err := s.settings.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type saveSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) saveSetting(w http.ResponseWriter, r *http.Request) {
	var req saveSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body", `expected {"key": "...", "value": "..."}`)
		return
	}
	if err := s.settings.Save(r.Context(), req.Key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) virality(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.RecentPosts(r.Context(), s.userID(r), s.opts.PostLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.ComputeVirality(posts))
}

type dashboardResponse struct {
	Totals       models.PostTotals    `json:"totals"`
	Virality     models.ViralityScore `json:"virality"`
	TopPosts     []models.Post        `json:"top_posts"`
	Pillars      []models.PillarStats `json:"pillars"`
	LatestReport *latestReportSummary `json:"latest_report"`
	Trends       []models.Trend       `json:"trends"`
}

type latestReportSummary struct {
	ID                 string                    `json:"id"`
	WeekStart          time.Time                 `json:"week_start"`
	Summary            string                    `json:"summary"`
	AIInsights         []models.ReportItem       `json:"ai_insights"`
	Recommendations    []models.ReportItem       `json:"recommendations"`
	ViralOpportunities []models.ViralOpportunity `json:"viral_opportunities"`
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := s.userID(r)

	posts, err := s.store.RecentPosts(ctx, userID, s.opts.PostLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := dashboardResponse{
		Totals:   analytics.Totals(posts),
		Virality: analytics.ComputeVirality(posts),
		TopPosts: analytics.TopViralPosts(posts, topPostCount),
		Pillars:  analytics.PillarBreakdown(posts),
		Trends:   []models.Trend{},
	}

	latest, err := s.store.LatestReport(ctx, userID)
	switch {
	case err == nil:
		resp.LatestReport = &latestReportSummary{
			ID:                 latest.ID,
			WeekStart:          latest.WeekStart,
			Summary:            latest.Summary,
			AIInsights:         latest.AIInsights,
			Recommendations:    latest.Recommendations,
			ViralOpportunities: latest.ContentMix.ViralOpportunities,
		}
	case !errors.Is(err, store.ErrNotFound):
		writeError(w, err)
		return
	}

	trends, err := s.store.ListTrends(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, t := range trends {
		if t.Status == models.TrendNew || t.Status == models.TrendWatching {
			resp.Trends = append(resp.Trends, t)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.store.ListTrends(r.Context(), s.userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if trends == nil {
		trends = []models.Trend{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
}

type createTrendRequest struct {
	Platform       models.Platform  `json:"platform"`
	TrendType      models.TrendType `json:"trend_type"`
	Title          string           `json:"title"`
	Description    *string          `json:"description"`
	RelevanceScore int              `json:"relevance_score"`
	Source         *string          `json:"source"`
}

func (s *Server) createTrend(w http.ResponseWriter, r *http.Request) {
	var req createTrendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}

	trend := &models.Trend{
		UserID:         s.userID(r),
		Platform:       req.Platform,
		TrendType:      req.TrendType,
		Title:          req.Title,
		Description:    req.Description,
		RelevanceScore: req.RelevanceScore,
		Source:         req.Source,
	}
	if err := s.store.CreateTrend(r.Context(), trend); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trend)
}

type updateTrendRequest struct {
	Status models.TrendStatus `json:"status"`
}

func (s *Server) updateTrend(w http.ResponseWriter, r *http.Request) {
	var req updateTrendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body", `expected {"status": "watching|acted|expired"}`)
		return
	}

	trend, err := s.store.UpdateTrendStatus(r.Context(), s.userID(r), mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}
