package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/creatorlab/viralbot/internal/analytics"
	"github.com/creatorlab/viralbot/internal/events"
	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/notifications"
	"github.com/creatorlab/viralbot/internal/runlock"
	"github.com/creatorlab/viralbot/internal/storage"
	"github.com/sirupsen/logrus"
)

// Writer produces structured report content from a prompt
type Writer interface {
	WriteReport(ctx context.Context, prompt string) (*models.ReportContent, error)
}

// Store is the persistence surface used by the generator
type Store interface {
	PostsSince(ctx context.Context, userID string, since time.Time) ([]models.Post, error)
	RecentReports(ctx context.Context, userID string, limit int) ([]models.WeeklyReport, error)
	InsertReport(ctx context.Context, report *models.WeeklyReport) error
}

// Dependencies are the collaborators of a Generator. Archive, Notifier,
// Publisher and Locker are optional.
type Dependencies struct {
	Store     Store
	Writer    Writer
	Archive   storage.StorageInterface
	Notifier  notifications.NotificationInterface
	Publisher events.Publisher
	Locker    runlock.Locker
	Logger    logrus.FieldLogger
}

// Options tune report generation
type Options struct {
	LookbackDays int
	PriorReports int
	Location     *time.Location
	LockTTL      time.Duration
	Now          func() time.Time
}

// Generator builds and persists weekly strategy reports
type Generator struct {
	deps Dependencies
	opts Options
	log  logrus.FieldLogger
}

// NewGenerator creates a new report generator
func NewGenerator(deps Dependencies, opts Options) *Generator {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if deps.Locker == nil {
		deps.Locker = runlock.NewLocalLocker()
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	if opts.PriorReports <= 0 {
		opts.PriorReports = 3
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{deps: deps, opts: opts, log: deps.Logger}
}

// Generate writes a report over the lookback window and persists it. A
// report is stored only when the writer returned a fully valid result.
func (g *Generator) Generate(ctx context.Context, userID string) (*models.WeeklyReport, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	release, err := g.deps.Locker.Acquire(ctx, "report:"+userID, g.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	now := g.opts.Now()
	entry := g.log.WithField("user_id", userID)

	posts, err := g.deps.Store.PostsSince(ctx, userID, g.windowStart(now))
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, &InsufficientDataError{UserID: userID, LookbackDays: g.opts.LookbackDays}
	}

	prior, err := g.deps.Store.RecentReports(ctx, userID, g.opts.PriorReports)
	if err != nil {
		entry.Warnf("Prior reports unavailable, continuing without them: %v", err)
		prior = nil
	}

	entry.WithFields(logrus.Fields{
		"posts":         len(posts),
		"prior_reports": len(prior),
	}).Info("Generating weekly report")

	content, err := g.deps.Writer.WriteReport(ctx, BuildPrompt(posts, prior))
	if err != nil {
		return nil, &ReportGenerationError{Err: err}
	}

	weekStart, weekEnd := WeekBounds(now, g.opts.Location)
	report := Project(userID, weekStart, weekEnd, posts, content)

	if err := g.deps.Store.InsertReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	entry.WithFields(logrus.Fields{
		"report_id":  report.ID,
		"week_start": weekStart.Format("2006-01-02"),
		"duration":   time.Since(start).String(),
	}).Info("Weekly report saved")

	g.deliver(ctx, report)
	return report, nil
}

func (g *Generator) windowStart(now time.Time) time.Time {
	local := now.In(g.opts.Location).AddDate(0, 0, -g.opts.LookbackDays)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.opts.Location)
}

// deliver archives, notifies and publishes the saved report. Failures are
// logged only; the report is already persisted.
func (g *Generator) deliver(ctx context.Context, report *models.WeeklyReport) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	if g.deps.Archive != nil {
		key := storage.ReportKey(report.UserID, report.WeekStart)
		if err := storage.StoreJSON(ctx, g.deps.Archive, key, report); err != nil {
			g.log.Warnf("Failed to archive report %s: %v", report.ID, err)
		} else {
			g.log.Debugf("Archived report %s as %s", report.ID, key)
		}
	}

	if g.deps.Notifier != nil {
		if err := g.deps.Notifier.SendReport(ctx, report); err != nil {
			g.log.Errorf("Failed to send report %s: %v", report.ID, err)
		}
	}

	if err := g.deps.Publisher.Publish(ctx, events.TypeReportGenerated, report.UserID, report); err != nil {
		g.log.Warnf("Failed to publish report event: %v", err)
	}
}

// WeekBounds returns the Monday and Sunday of the ISO week containing now in
// loc, as calendar dates at UTC midnight
func WeekBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	monday := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, time.UTC)
	return monday, monday.AddDate(0, 0, 6)
}

// Project turns writer output and the window's posts into a report record
func Project(userID string, weekStart, weekEnd time.Time, posts []models.Post, content *models.ReportContent) *models.WeeklyReport {
	totals := analytics.Totals(posts)

	report := &models.WeeklyReport{
		UserID:            userID,
		WeekStart:         weekStart,
		WeekEnd:           weekEnd,
		Summary:           content.Summary,
		AvgEngagementRate: totals.AvgEngagement,
		TotalViews:        totals.Views,
		TotalLikes:        totals.Likes,
		TotalComments:     totals.Comments,
		TotalSaves:        totals.Saves,
		TotalShares:       totals.Shares,
		ContentMix: models.ContentMix{
			NextWeekPlan:       content.NextWeekPlan,
			ViralOpportunities: content.ViralOpportunities,
			WhatWorked:         content.WhatWorked,
			WhatDidntWork:      content.WhatDidntWork,
		},
	}

	if top := analytics.TopByEngagement(posts); top != nil && top.ID != "" {
		id := top.ID
		report.TopPostID = &id
	}

	report.AIInsights = make([]models.ReportItem, 0, len(content.Patterns)+len(content.ReinforcementNotes))
	for _, p := range content.Patterns {
		report.AIInsights = append(report.AIInsights, models.ReportItem{Text: p.Observation, Type: "pattern"})
	}
	for _, n := range content.ReinforcementNotes {
		report.AIInsights = append(report.AIInsights, models.ReportItem{Text: n.Text, Type: n.Type})
	}

	report.Recommendations = make([]models.ReportItem, 0, len(content.ViralOpportunities)+len(content.SkillFocus))
	for _, v := range content.ViralOpportunities {
		report.Recommendations = append(report.Recommendations, models.ReportItem{Text: v.Idea, Type: "viral"})
	}
	for _, s := range content.SkillFocus {
		report.Recommendations = append(report.Recommendations, models.ReportItem{
			Text: fmt.Sprintf("%s: %s", s.Skill, s.Action),
			Type: "skill",
		})
	}

	return report
}
