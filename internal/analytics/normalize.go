package analytics

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/creatorlab/viralbot/internal/models"
)

// timestampLayouts are tried in order when parsing provider timestamps
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// MapFormat maps the provider media classification onto an internal format.
// The reel check runs before the carousel check.
func MapFormat(mediaType, productType string) models.Format {
	if productType == "REELS" || mediaType == "VIDEO" {
		return models.FormatReel
	}
	if mediaType == "CAROUSEL_ALBUM" {
		return models.FormatCarousel
	}
	return models.FormatImage
}

// ParseTimestamp parses a provider timestamp into UTC
func ParseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Rate returns 100*part/reach rounded to 4 decimals, or 0 when reach is 0
func Rate(part, reach int64) float64 {
	if reach <= 0 {
		return 0
	}
	return Round4(float64(part) / float64(reach) * 100)
}

// Round4 rounds v to 4 decimal places
func Round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10000) / 10000
}

// Normalize maps a media item and its insights onto a post record.
// followers is the account follower count at sync time, 0 when unknown.
// PostDate stays zero when the provider timestamp cannot be parsed.
func Normalize(userID string, item models.MediaItem, ins models.Insights, followers int64) models.Post {
	reach := first(ins.Reach)
	likes := first(ins.Likes, item.LikeCount)
	comments := first(ins.Comments, item.CommentsCount)
	saves := first(ins.Saved)
	shares := first(ins.Shares)
	views := first(ins.Views, ins.Plays, ins.Impressions, ins.Reach)

	interactions := likes + comments + saves + shares
	if total := first(ins.TotalInteractions); total > 0 {
		interactions = total
	}

	postDate, _ := ParseTimestamp(item.Timestamp)

	return models.Post{
		UserID:                userID,
		InstagramMediaID:      item.ID,
		Platform:              models.PlatformInstagram,
		PostDate:              postDate.Truncate(time.Second),
		Caption:               truncateCaption(item.Caption),
		Permalink:             optional(item.Permalink),
		ThumbnailURL:          optional(item.ThumbnailURL),
		MediaType:             item.MediaType,
		Format:                MapFormat(item.MediaType, item.MediaProductType),
		Views:                 views,
		Reach:                 reach,
		Likes:                 likes,
		Comments:              comments,
		Saves:                 saves,
		Shares:                shares,
		FollowsGained:         first(ins.Follows),
		FollowerCountSnapshot: followers,
		ProfileVisits:         first(ins.ProfileVisits),
		TotalInteractions:     first(ins.TotalInteractions),
		Replays:               first(ins.Replays),
		AvgWatchTime:          first(ins.AvgWatchTime),
		VideoViewTotalTime:    first(ins.VideoViewTotalTime),
		EngagementRate:        Rate(interactions, reach),
		SaveRate:              Rate(saves, reach),
		ShareRate:             Rate(shares, reach),
	}
}

// UpdateFields builds the partial update of existing from a freshly
// normalized post. Metric columns with a zero value are left out so a missed
// observation never overwrites a stored value. The follower snapshot is
// historical and only fills an empty one. Descriptive columns are refreshed,
// except post_date when the fresh timestamp was unusable, and classification
// tags are never touched.
func UpdateFields(existing, fresh models.Post) map[string]any {
	fields := fresh.DescriptiveValues()
	if fresh.PostDate.IsZero() {
		delete(fields, "post_date")
	}
	for column, value := range fresh.MetricValues() {
		if isZero(value) {
			continue
		}
		fields[column] = value
	}
	if existing.FollowerCountSnapshot != 0 {
		delete(fields, "follower_count_snapshot")
	}
	return fields
}

func isZero(v any) bool {
	switch n := v.(type) {
	case int64:
		return n == 0
	case float64:
		return n == 0
	}
	return false
}

// first returns the first present value, or 0
func first(values ...*int64) int64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func truncateCaption(caption string) *string {
	if caption == "" {
		return nil
	}
	if utf8.RuneCountInString(caption) > models.MaxCaptionLength {
		runes := []rune(caption)
		caption = string(runes[:models.MaxCaptionLength])
	}
	return &caption
}
