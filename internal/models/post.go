package models

import "time"

// Platform identifies the social network a post was published on
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

// Format is the internal content format derived from the provider media classification
type Format string

const (
	FormatReel     Format = "reel"
	FormatCarousel Format = "carousel"
	FormatImage    Format = "image"
)

// MaxCaptionLength bounds stored captions, counted in runes
const MaxCaptionLength = 2000

// Post represents one externally tracked media item and its latest metrics
type Post struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	InstagramMediaID string    `json:"instagram_media_id" db:"instagram_media_id"`
	Platform         Platform  `json:"platform" db:"platform"`
	PostDate         time.Time `json:"post_date" db:"post_date"`
	Caption          *string   `json:"caption" db:"caption"`
	Permalink        *string   `json:"permalink" db:"permalink"`
	ThumbnailURL     *string   `json:"thumbnail_url" db:"thumbnail_url"`
	MediaType        string    `json:"media_type" db:"media_type"` // raw provider type, e.g. "CAROUSEL_ALBUM"
	Format           Format    `json:"format" db:"format"`

	Views                 int64 `json:"views" db:"views"`
	Reach                 int64 `json:"reach" db:"reach"`
	Likes                 int64 `json:"likes" db:"likes"`
	Comments              int64 `json:"comments" db:"comments"`
	Saves                 int64 `json:"saves" db:"saves"`
	Shares                int64 `json:"shares" db:"shares"`
	FollowsGained         int64 `json:"follows_gained" db:"follows_gained"`
	FollowerCountSnapshot int64 `json:"follower_count_snapshot" db:"follower_count_snapshot"`
	ProfileVisits         int64 `json:"profile_visits" db:"profile_visits"`
	TotalInteractions     int64 `json:"total_interactions" db:"total_interactions"`
	Replays               int64 `json:"replays" db:"replays"`
	AvgWatchTime          int64 `json:"avg_watch_time" db:"avg_watch_time"`             // milliseconds
	VideoViewTotalTime    int64 `json:"video_view_total_time" db:"video_view_total_time"` // milliseconds

	EngagementRate float64 `json:"engagement_rate" db:"engagement_rate"`
	SaveRate       float64 `json:"save_rate" db:"save_rate"`
	ShareRate      float64 `json:"share_rate" db:"share_rate"`

	// Classification tags are curated by hand and never written by sync
	ContentPillar *string `json:"content_pillar" db:"content_pillar"`
	ContentFormat *string `json:"content_format" db:"content_format"`
	HookType      *string `json:"hook_type" db:"hook_type"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MetricValues returns the counters and derived rates of the post keyed by column name.
func (p *Post) MetricValues() map[string]any {
	return map[string]any{
		"views":                   p.Views,
		"reach":                   p.Reach,
		"likes":                   p.Likes,
		"comments":                p.Comments,
		"saves":                   p.Saves,
		"shares":                  p.Shares,
		"follows_gained":          p.FollowsGained,
		"follower_count_snapshot": p.FollowerCountSnapshot,
		"profile_visits":          p.ProfileVisits,
		"total_interactions":      p.TotalInteractions,
		"replays":                 p.Replays,
		"avg_watch_time":          p.AvgWatchTime,
		"video_view_total_time":   p.VideoViewTotalTime,
		"engagement_rate":         p.EngagementRate,
		"save_rate":               p.SaveRate,
		"share_rate":              p.ShareRate,
	}
}

// DescriptiveValues returns the columns refreshed on every sync regardless of value.
func (p *Post) DescriptiveValues() map[string]any {
	return map[string]any{
		"platform":      string(p.Platform),
		"post_date":     p.PostDate,
		"caption":       p.Caption,
		"permalink":     p.Permalink,
		"thumbnail_url": p.ThumbnailURL,
		"media_type":    p.MediaType,
		"format":        string(p.Format),
	}
}

// CaptionText returns the caption or a placeholder when none was published
func (p *Post) CaptionText() string {
	if p.Caption == nil || *p.Caption == "" {
		return "No caption"
	}
	return *p.Caption
}

// PostRef is a lightweight reference to a post used in rollups
type PostRef struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
	Shares  int64  `json:"shares"`
	Saves   int64  `json:"saves"`
}

// UpsertOutcome reports which branch the reconciliation engine took for an item
type UpsertOutcome string

const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
)
