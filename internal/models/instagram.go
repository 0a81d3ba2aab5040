package models

// MediaItem is a media object as listed by the provider
type MediaItem struct {
	ID               string `json:"id"`
	Caption          string `json:"caption"`
	MediaType        string `json:"media_type"`         // IMAGE, VIDEO, CAROUSEL_ALBUM
	MediaProductType string `json:"media_product_type"` // FEED, REELS, STORY, AD
	Timestamp        string `json:"timestamp"`
	Permalink        string `json:"permalink"`
	ThumbnailURL     string `json:"thumbnail_url"`
	LikeCount        *int64 `json:"like_count"`
	CommentsCount    *int64 `json:"comments_count"`
}

// IsReel reports whether the provider classifies the item as a reel
func (m MediaItem) IsReel() bool {
	return m.MediaProductType == "REELS"
}

// IsVideo reports whether the item carries video-specific metrics
func (m MediaItem) IsVideo() bool {
	return m.IsReel() || m.MediaType == "VIDEO"
}

// AccountHandle identifies the external account a credential can read
type AccountHandle struct {
	ExternalAccountID string `json:"external_account_id"`
	EffectiveToken    string `json:"-"`
	BaseURL           string `json:"base_url"` // API surface the account was discovered on
	PageName          string `json:"page_name,omitempty"`
	Strategy          string `json:"strategy"`
}

// Insights holds the per-media metrics returned by the provider.
// A nil field means the provider did not report that metric.
type Insights struct {
	Views              *int64 `json:"views,omitempty"`
	Plays              *int64 `json:"plays,omitempty"`
	Impressions        *int64 `json:"impressions,omitempty"`
	Reach              *int64 `json:"reach,omitempty"`
	Likes              *int64 `json:"likes,omitempty"`
	Comments           *int64 `json:"comments,omitempty"`
	Saved              *int64 `json:"saved,omitempty"`
	Shares             *int64 `json:"shares,omitempty"`
	Follows            *int64 `json:"follows,omitempty"`
	ProfileVisits      *int64 `json:"profile_visits,omitempty"`
	TotalInteractions  *int64 `json:"total_interactions,omitempty"`
	Replays            *int64 `json:"replays,omitempty"`
	AvgWatchTime       *int64 `json:"avg_watch_time,omitempty"`
	VideoViewTotalTime *int64 `json:"video_view_total_time,omitempty"`
}

func (i *Insights) field(name string) **int64 {
	switch name {
	case "views":
		return &i.Views
	case "plays":
		return &i.Plays
	case "impressions":
		return &i.Impressions
	case "reach":
		return &i.Reach
	case "likes":
		return &i.Likes
	case "comments":
		return &i.Comments
	case "saved":
		return &i.Saved
	case "shares":
		return &i.Shares
	case "follows":
		return &i.Follows
	case "profile_visits":
		return &i.ProfileVisits
	case "total_interactions":
		return &i.TotalInteractions
	case "clips_replays_count":
		return &i.Replays
	case "ig_reels_avg_watch_time":
		return &i.AvgWatchTime
	case "ig_reels_video_view_total_time":
		return &i.VideoViewTotalTime
	}
	return nil
}

// Set records a provider metric by name. Unknown names are ignored and reported as false.
func (i *Insights) Set(name string, value int64) bool {
	f := i.field(name)
	if f == nil {
		return false
	}
	v := value
	*f = &v
	return true
}

// Get returns the value of a provider metric by name
func (i *Insights) Get(name string) (int64, bool) {
	f := i.field(name)
	if f == nil || *f == nil {
		return 0, false
	}
	return **f, true
}

// Merge copies metrics from other that are not already present
func (i *Insights) Merge(other Insights) {
	for _, name := range InsightNames {
		if _, ok := i.Get(name); ok {
			continue
		}
		if v, ok := other.Get(name); ok {
			i.Set(name, v)
		}
	}
}

// Count returns how many metrics are present
func (i *Insights) Count() int {
	n := 0
	for _, name := range InsightNames {
		if _, ok := i.Get(name); ok {
			n++
		}
	}
	return n
}

// InsightNames is the closed vocabulary of provider metric names understood by Insights
var InsightNames = []string{
	"views", "plays", "impressions", "reach", "likes", "comments", "saved", "shares",
	"follows", "profile_visits", "total_interactions",
	"clips_replays_count", "ig_reels_avg_watch_time", "ig_reels_video_view_total_time",
}
