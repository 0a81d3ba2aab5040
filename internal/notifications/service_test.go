package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *models.WeeklyReport {
	return &models.WeeklyReport{
		ID:                "r-1",
		UserID:            "user-1",
		WeekStart:         time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
		WeekEnd:           time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		Summary:           "Reels carried the week.",
		AvgEngagementRate: 7.25,
		TotalViews:        12000,
		TotalSaves:        300,
		TotalShares:       150,
		Recommendations: []models.ReportItem{
			{Text: "Duet a trending audio", Type: "viral"},
			{Text: "Hooks: script 3 hooks", Type: "skill"},
		},
		ContentMix: models.ContentMix{
			ViralOpportunities: []models.ViralOpportunity{{Idea: "Duet a trending audio", Format: "reel", HookSuggestion: "Wait for it"}},
			NextWeekPlan:       []models.PlanDay{{Day: "Monday", ContentIdea: "Studio tour", Format: "reel", Hook: "POV", Type: "viral attempt"}},
			WhatWorked:         []models.WorkedItem{{PostCaption: strings.Repeat("a", 100), Reason: "Strong hook", Pattern: "POV"}},
		},
	}
}

func TestSendReport_Teams(t *testing.T) {
	var got TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(Options{TeamsWebhookURL: server.URL, DashboardURL: "https://viralbot.example/dashboard"})
	require.NoError(t, service.SendReport(context.Background(), sampleReport()))

	assert.Equal(t, "MessageCard", got.Type)
	assert.Equal(t, "Weekly Strategy Report - Oct 12 to Oct 18, 2026", got.Title)
	assert.Equal(t, "Reels carried the week.", got.Text)
	require.Len(t, got.Sections, 4)
	assert.Equal(t, "Totals", got.Sections[0].ActivityTitle)
	assert.Contains(t, got.Sections[1].ActivityText, "Duet a trending audio")
	assert.Equal(t, "Monday", got.Sections[2].Facts[0].Name)
	assert.Contains(t, got.Sections[3].ActivityText, "https://viralbot.example/dashboard")
}

func TestSendReport_TeamsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad payload"))
	}))
	defer server.Close()

	service := NewService(Options{TeamsWebhookURL: server.URL})
	err := service.SendReport(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Teams")
	assert.Contains(t, err.Error(), "400")
}

func TestSendReport_NoChannels(t *testing.T) {
	service := NewService(Options{})
	assert.False(t, service.Enabled())
	assert.NoError(t, service.SendReport(context.Background(), sampleReport()))
	assert.NoError(t, service.SendAlert(context.Background(), &Alert{Title: "Sync failed"}))
}

func TestSendAlert_Teams(t *testing.T) {
	var got TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	service := NewService(Options{TeamsWebhookURL: server.URL})
	err := service.SendAlert(context.Background(), &Alert{
		Type:    "sync_failed",
		Title:   "Scheduled sync failed",
		Message: "no Instagram token configured",
		UserID:  "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Scheduled sync failed", got.Title)
	assert.Equal(t, "sync_failed", got.Sections[0].Facts[0].Value)
}

func TestBuildEmail(t *testing.T) {
	service := NewService(Options{})
	report := sampleReport()

	html, err := service.buildEmailHTML(report)
	require.NoError(t, err)
	assert.Contains(t, html, "Week of October 12, 2026")
	assert.Contains(t, html, "Studio tour")
	assert.Contains(t, html, strings.Repeat("a", 80)+"...")

	text := service.buildEmailText(report)
	assert.Contains(t, text, "Views: 12000")
	assert.Contains(t, text, "Avg engagement: 7.25%")
	assert.Contains(t, text, "1. [viral] Duet a trending audio")
	assert.Contains(t, text, "Monday: Studio tour (reel, viral attempt)")
}
