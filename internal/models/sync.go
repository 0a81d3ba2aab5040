package models

import "time"

// MaxErrorDetails caps the per-item error messages kept in a sync summary
const MaxErrorDetails = 5

// SyncResult summarizes one ingestion run for a user
type SyncResult struct {
	UserID        string    `json:"user_id"`
	AccountID     string    `json:"account_id"`
	PageName      string    `json:"page_name,omitempty"`
	Strategy      string    `json:"strategy"`
	Total         int       `json:"total"`
	Synced        int       `json:"synced"`
	Created       int       `json:"created"`
	Updated       int       `json:"updated"`
	Skipped       int       `json:"skipped"`
	Errors        int       `json:"errors"`
	ErrorDetails  []string  `json:"error_details,omitempty"`
	DeltasUpdated int       `json:"follower_deltas_updated"`
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
	Message       string    `json:"message"`
}

// AddError counts a failed item and keeps its detail while under the cap
func (r *SyncResult) AddError(detail string) {
	r.Errors++
	if len(r.ErrorDetails) < MaxErrorDetails {
		r.ErrorDetails = append(r.ErrorDetails, detail)
	}
}

// Setting is a persisted key/value pair such as an API token
type Setting struct {
	ID        string    `json:"id" db:"id"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
