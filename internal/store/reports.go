package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/creatorlab/viralbot/internal/models"
	"github.com/google/uuid"
)

var reportColumns = []string{
	"id", "user_id", "week_start", "week_end", "summary", "avg_engagement_rate",
	"total_views", "total_likes", "total_comments", "total_saves", "total_shares",
	"top_post_id", "ai_insights", "recommendations", "content_mix", "created_at",
}

// reportRow is the SQL shape of a weekly report; list payloads are JSON text
type reportRow struct {
	ID                string    `db:"id"`
	UserID            string    `db:"user_id"`
	WeekStart         time.Time `db:"week_start"`
	WeekEnd           time.Time `db:"week_end"`
	Summary           string    `db:"summary"`
	AvgEngagementRate float64   `db:"avg_engagement_rate"`
	TotalViews        int64     `db:"total_views"`
	TotalLikes        int64     `db:"total_likes"`
	TotalComments     int64     `db:"total_comments"`
	TotalSaves        int64     `db:"total_saves"`
	TotalShares       int64     `db:"total_shares"`
	TopPostID         *string   `db:"top_post_id"`
	AIInsights        string    `db:"ai_insights"`
	Recommendations   string    `db:"recommendations"`
	ContentMix        string    `db:"content_mix"`
	CreatedAt         time.Time `db:"created_at"`
}

func (r reportRow) toModel() (models.WeeklyReport, error) {
	report := models.WeeklyReport{
		ID:                r.ID,
		UserID:            r.UserID,
		WeekStart:         r.WeekStart,
		WeekEnd:           r.WeekEnd,
		Summary:           r.Summary,
		AvgEngagementRate: r.AvgEngagementRate,
		TotalViews:        r.TotalViews,
		TotalLikes:        r.TotalLikes,
		TotalComments:     r.TotalComments,
		TotalSaves:        r.TotalSaves,
		TotalShares:       r.TotalShares,
		TopPostID:         r.TopPostID,
		CreatedAt:         r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.AIInsights), &report.AIInsights); err != nil {
		return report, fmt.Errorf("failed to decode ai_insights of report %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Recommendations), &report.Recommendations); err != nil {
		return report, fmt.Errorf("failed to decode recommendations of report %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.ContentMix), &report.ContentMix); err != nil {
		return report, fmt.Errorf("failed to decode content_mix of report %s: %w", r.ID, err)
	}
	return report, nil
}

// InsertReport persists a new weekly report
func (s *Store) InsertReport(ctx context.Context, report *models.WeeklyReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now()
	}

	insights, err := json.Marshal(nonNilItems(report.AIInsights))
	if err != nil {
		return fmt.Errorf("failed to encode ai_insights: %w", err)
	}
	recommendations, err := json.Marshal(nonNilItems(report.Recommendations))
	if err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}
	mix, err := json.Marshal(report.ContentMix)
	if err != nil {
		return fmt.Errorf("failed to encode content_mix: %w", err)
	}

	query, args, err := s.builder.Insert("weekly_reports").
		SetMap(map[string]any{
			"id":                  report.ID,
			"user_id":             report.UserID,
			"week_start":          normalizeTime(report.WeekStart),
			"week_end":            normalizeTime(report.WeekEnd),
			"summary":             report.Summary,
			"avg_engagement_rate": report.AvgEngagementRate,
			"total_views":         report.TotalViews,
			"total_likes":         report.TotalLikes,
			"total_comments":      report.TotalComments,
			"total_saves":         report.TotalSaves,
			"total_shares":        report.TotalShares,
			"top_post_id":         report.TopPostID,
			"ai_insights":         string(insights),
			"recommendations":     string(recommendations),
			"content_mix":         string(mix),
			"created_at":          normalizeTime(report.CreatedAt),
		}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// RecentReports returns the user's latest reports, newest first
func (s *Store) RecentReports(ctx context.Context, userID string, limit int) ([]models.WeeklyReport, error) {
	query, args, err := s.builder.Select(reportColumns...).
		From("weekly_reports").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "week_start DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []reportRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}

	reports := make([]models.WeeklyReport, 0, len(rows))
	for _, row := range rows {
		report, err := row.toModel()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// LatestReport returns the user's newest report, or ErrNotFound
func (s *Store) LatestReport(ctx context.Context, userID string) (*models.WeeklyReport, error) {
	reports, err := s.RecentReports(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return &reports[0], nil
}

// GetReport returns one report by id, or ErrNotFound
func (s *Store) GetReport(ctx context.Context, userID, id string) (*models.WeeklyReport, error) {
	query, args, err := s.builder.Select(reportColumns...).
		From("weekly_reports").
		Where(sq.Eq{"user_id": userID, "id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row reportRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}

	report, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func nonNilItems(items []models.ReportItem) []models.ReportItem {
	if items == nil {
		return []models.ReportItem{}
	}
	return items
}
