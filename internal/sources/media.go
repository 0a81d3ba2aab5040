package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/sirupsen/logrus"
)

// maxPageSize is the largest page the media edge accepts
const maxPageSize = 50

const mediaFields = "id,caption,media_type,media_product_type,timestamp,permalink,thumbnail_url,like_count,comments_count"

type mediaResponse struct {
	Data   []models.MediaItem `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

type followersResponse struct {
	FollowersCount *int64 `json:"followers_count"`
}

// MediaLister enumerates an account's media and reads account-level counters
type MediaLister struct {
	getter Getter
	log    logrus.FieldLogger
}

// NewMediaLister creates a new media lister
func NewMediaLister(getter Getter, log logrus.FieldLogger) *MediaLister {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MediaLister{getter: getter, log: log}
}

// ListMedia returns up to limit media items, newest first, following paging
// cursors. A failure after the first page returns the items gathered so far.
func (m *MediaLister) ListMedia(ctx context.Context, account *models.AccountHandle, limit int) ([]models.MediaItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	pageSize := limit
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	path := "/" + account.ExternalAccountID + "/media"
	params := url.Values{
		"fields": {mediaFields},
		"limit":  {strconv.Itoa(pageSize)},
	}

	var items []models.MediaItem
	seen := make(map[string]bool)

	for page := 0; len(items) < limit; page++ {
		body, err := m.getter.Get(ctx, account.BaseURL, path, params, account.EffectiveToken)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("failed to list media: %w", err)
			}
			m.log.WithFields(logrus.Fields{
				"page":  page,
				"error": RedactToken(err.Error()),
			}).Warn("Media pagination stopped early")
			break
		}

		var resp mediaResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			if page == 0 {
				return nil, fmt.Errorf("failed to decode media page: %w", err)
			}
			m.log.WithFields(logrus.Fields{
				"page":  page,
				"error": err.Error(),
			}).Warn("Media pagination stopped at an unreadable page")
			break
		}
		if len(resp.Data) == 0 {
			break
		}
		items = append(items, resp.Data...)

		// Prefer the absolute next link; fall back to the after cursor.
		if next := resp.Paging.Next; next != "" {
			if seen[next] {
				break
			}
			seen[next] = true
			path, params = next, nil
			continue
		}

		after := resp.Paging.Cursors.After
		if after == "" || seen[after] {
			break
		}
		seen[after] = true
		path = "/" + account.ExternalAccountID + "/media"
		params = url.Values{
			"fields": {mediaFields},
			"limit":  {strconv.Itoa(pageSize)},
			"after":  {after},
		}
	}

	if len(items) > limit {
		items = items[:limit]
	}

	m.log.WithFields(logrus.Fields{
		"account_id": account.ExternalAccountID,
		"count":      len(items),
	}).Info("Listed media")
	return items, nil
}

// FollowerCount returns the account's current follower count
func (m *MediaLister) FollowerCount(ctx context.Context, account *models.AccountHandle) (int64, error) {
	body, err := m.getter.Get(ctx, account.BaseURL, "/"+account.ExternalAccountID, url.Values{"fields": {"followers_count"}}, account.EffectiveToken)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch follower count: %w", err)
	}

	var resp followersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode follower count: %w", err)
	}
	if resp.FollowersCount == nil {
		return 0, fmt.Errorf("follower count not reported")
	}
	return *resp.FollowersCount, nil
}
