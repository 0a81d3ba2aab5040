package models

import "time"

// TrendType classifies what kind of trend is being tracked
type TrendType string

const (
	TrendAudio   TrendType = "audio"
	TrendFormat  TrendType = "format"
	TrendTopic   TrendType = "topic"
	TrendHashtag TrendType = "hashtag"
)

// TrendStatus is the lifecycle state of a trend
type TrendStatus string

const (
	TrendNew      TrendStatus = "new"
	TrendWatching TrendStatus = "watching"
	TrendActed    TrendStatus = "acted"
	TrendExpired  TrendStatus = "expired"
)

// Trend is a user-curated trend worth watching
type Trend struct {
	ID             string      `json:"id" db:"id"`
	UserID         string      `json:"user_id" db:"user_id"`
	Platform       Platform    `json:"platform" db:"platform"`
	TrendType      TrendType   `json:"trend_type" db:"trend_type"`
	Title          string      `json:"title" db:"title"`
	Description    *string     `json:"description" db:"description"`
	RelevanceScore int         `json:"relevance_score" db:"relevance_score"`
	Status         TrendStatus `json:"status" db:"status"`
	Source         *string     `json:"source" db:"source"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// ValidTrendType reports whether t is a known trend type
func ValidTrendType(t TrendType) bool {
	switch t {
	case TrendAudio, TrendFormat, TrendTopic, TrendHashtag:
		return true
	}
	return false
}

// CanTransition reports whether a trend may move from one status to another.
// Trends advance new -> watching -> acted and may expire from any live state.
func CanTransition(from, to TrendStatus) bool {
	switch to {
	case TrendWatching:
		return from == TrendNew
	case TrendActed:
		return from == TrendNew || from == TrendWatching
	case TrendExpired:
		return from != TrendExpired
	}
	return false
}
