package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/creatorlab/viralbot/internal/models"
	"github.com/google/uuid"
)

var trendColumns = []string{
	"id", "user_id", "platform", "trend_type", "title", "description",
	"relevance_score", "status", "source", "created_at", "updated_at",
}

// CreateTrend validates and inserts a new trend in status "new"
func (s *Store) CreateTrend(ctx context.Context, trend *models.Trend) error {
	if strings.TrimSpace(trend.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTrend)
	}
	if !models.ValidTrendType(trend.TrendType) {
		return fmt.Errorf("%w: unknown trend type %q", ErrInvalidTrend, trend.TrendType)
	}
	if trend.RelevanceScore < 0 || trend.RelevanceScore > 100 {
		return fmt.Errorf("%w: relevance score must be between 0 and 100", ErrInvalidTrend)
	}

	if trend.ID == "" {
		trend.ID = uuid.NewString()
	}
	if trend.Platform == "" {
		trend.Platform = models.PlatformInstagram
	}
	trend.Status = models.TrendNew
	trend.CreatedAt = now()
	trend.UpdatedAt = trend.CreatedAt

	query, args, err := s.builder.Insert("trends").
		SetMap(map[string]any{
			"id":              trend.ID,
			"user_id":         trend.UserID,
			"platform":        string(trend.Platform),
			"trend_type":      string(trend.TrendType),
			"title":           trend.Title,
			"description":     trend.Description,
			"relevance_score": trend.RelevanceScore,
			"status":          string(trend.Status),
			"source":          trend.Source,
			"created_at":      trend.CreatedAt,
			"updated_at":      trend.UpdatedAt,
		}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert trend: %w", err)
	}
	return nil
}

// ListTrends returns the user's trends, most relevant first
func (s *Store) ListTrends(ctx context.Context, userID string) ([]models.Trend, error) {
	query, args, err := s.builder.Select(trendColumns...).
		From("trends").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("relevance_score DESC", "created_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var trends []models.Trend
	if err := s.db.SelectContext(ctx, &trends, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load trends: %w", err)
	}
	return trends, nil
}

// UpdateTrendStatus moves a trend to a new status if the lifecycle allows it
func (s *Store) UpdateTrendStatus(ctx context.Context, userID, id string, status models.TrendStatus) (*models.Trend, error) {
	trend, err := s.getTrend(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(trend.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, trend.Status, status)
	}

	updated := now()
	query, args, err := s.builder.Update("trends").
		Set("status", string(status)).
		Set("updated_at", updated).
		Where(sq.Eq{"id": id, "user_id": userID, "status": string(trend.Status)}).
		ToSql()
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update trend %s: %w", id, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, fmt.Errorf("%w: trend %s changed concurrently", ErrInvalidTransition, id)
	}

	trend.Status = status
	trend.UpdatedAt = updated
	return trend, nil
}

func (s *Store) getTrend(ctx context.Context, userID, id string) (*models.Trend, error) {
	query, args, err := s.builder.Select(trendColumns...).
		From("trends").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var trend models.Trend
	if err := s.db.GetContext(ctx, &trend, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load trend %s: %w", id, err)
	}
	return &trend, nil
}
