package sources

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"strings"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/sirupsen/logrus"
)

// Metric sets requested per media classification. Requesting a metric the
// provider does not support for a type fails the whole call, so reels and
// other media use distinct lists.
var (
	reelPrimaryMetrics  = []string{"views", "reach", "likes", "comments", "saved", "shares", "total_interactions", "follows", "profile_visits"}
	reelFallbackMetrics = []string{"views", "reach", "likes", "comments", "saved", "shares", "total_interactions"}

	mediaPrimaryMetrics  = []string{"impressions", "views", "reach", "likes", "comments", "saved", "shares", "total_interactions", "follows", "profile_visits"}
	mediaFallbackMetrics = []string{"reach", "likes", "comments", "saved", "shares"}

	videoBonusMetrics = []string{"ig_reels_avg_watch_time", "ig_reels_video_view_total_time", "clips_replays_count"}
)

type insightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value json.RawMessage `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

// InsightFetcher reads per-media insight metrics
type InsightFetcher struct {
	getter Getter
	log    logrus.FieldLogger
}

// NewInsightFetcher creates a new insight fetcher
func NewInsightFetcher(getter Getter, log logrus.FieldLogger) *InsightFetcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &InsightFetcher{getter: getter, log: log}
}

// MetricSets returns the primary and fallback metric lists for a media item
func MetricSets(media models.MediaItem) (primary, fallback []string) {
	if media.IsReel() {
		return reelPrimaryMetrics, reelFallbackMetrics
	}
	return mediaPrimaryMetrics, mediaFallbackMetrics
}

// FetchInsights requests the primary metric set and retries once with the
// fallback set. Provider rejections yield whatever was gathered, possibly
// nothing; transport failures are returned. Bonus video metrics never fail
// the call.
func (f *InsightFetcher) FetchInsights(ctx context.Context, account *models.AccountHandle, media models.MediaItem) (models.Insights, error) {
	primary, fallback := MetricSets(media)
	entry := f.log.WithFields(logrus.Fields{
		"media_id":     media.ID,
		"media_type":   media.MediaType,
		"product_type": media.MediaProductType,
	})

	ins, err := f.fetch(ctx, account, media.ID, primary)
	if err != nil {
		entry.WithField("error", RedactToken(err.Error())).Debug("Primary insights failed, retrying with fallback metrics")

		ins, err = f.fetch(ctx, account, media.ID, fallback)
		if err != nil {
			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				entry.WithField("error", RedactToken(err.Error())).Warn("Insights fetch failed")
				return models.Insights{}, err
			}
			entry.WithField("status", upstream.Status).Warn("Insights unavailable, metrics default to zero")
			ins = models.Insights{}
		}
	}

	if media.IsVideo() {
		bonus, err := f.fetch(ctx, account, media.ID, videoBonusMetrics)
		if err != nil {
			entry.WithField("error", RedactToken(err.Error())).Debug("Bonus video metrics unavailable")
		} else {
			ins.Merge(bonus)
		}
	}

	entry.WithField("metrics", ins.Count()).Debug("Fetched insights")
	return ins, nil
}

func (f *InsightFetcher) fetch(ctx context.Context, account *models.AccountHandle, mediaID string, metrics []string) (models.Insights, error) {
	params := url.Values{"metric": {strings.Join(metrics, ",")}}
	body, err := f.getter.Get(ctx, account.BaseURL, "/"+mediaID+"/insights", params, account.EffectiveToken)
	if err != nil {
		return models.Insights{}, err
	}
	return ParseInsights(body), nil
}

// ParseInsights decodes an insights body. Unknown metric names and
// non-numeric values are ignored; only the first value of each series is read.
func ParseInsights(body json.RawMessage) models.Insights {
	var ins models.Insights

	var resp insightsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ins
	}

	for _, metric := range resp.Data {
		if len(metric.Values) == 0 {
			continue
		}
		var n float64
		if err := json.Unmarshal(metric.Values[0].Value, &n); err != nil {
			continue
		}
		ins.Set(metric.Name, int64(math.Round(n)))
	}
	return ins
}
