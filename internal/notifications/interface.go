package notifications

import (
	"context"

	"github.com/creatorlab/viralbot/internal/models"
)

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendReport(ctx context.Context, report *models.WeeklyReport) error
	SendAlert(ctx context.Context, alert *Alert) error
}

// Alert is an operational notice, e.g. a scheduled sync that could not run
type Alert struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}
