package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ReportKey is the archive name of a weekly report
func ReportKey(userID string, weekStart time.Time) string {
	return fmt.Sprintf("reports/%s/%s.json", userID, weekStart.Format("2006-01-02"))
}

// SyncKey is the archive name of a sync run summary
func SyncKey(userID string, startedAt time.Time) string {
	return fmt.Sprintf("syncs/%s/%s.json", userID, startedAt.UTC().Format("2006-01-02-15-04-05"))
}

// StoreJSON marshals v and stores it under name
func StoreJSON(ctx context.Context, s StorageInterface, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return s.Store(ctx, name, data)
}
