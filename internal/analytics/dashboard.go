package analytics

import (
	"sort"

	"github.com/creatorlab/viralbot/internal/models"
)

// unassignedPillar groups posts nobody has tagged yet
const unassignedPillar = "Unassigned"

// TopViralPosts returns up to n posts ordered by shares+saves, keeping
// input order between equal posts
func TopViralPosts(posts []models.Post, n int) []models.Post {
	sorted := make([]models.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Shares+sorted[i].Saves > sorted[j].Shares+sorted[j].Saves
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// PillarBreakdown groups posts by content pillar, sorted by pillar name
func PillarBreakdown(posts []models.Post) []models.PillarStats {
	byPillar := make(map[string]*models.PillarStats)
	engagement := make(map[string]float64)

	for _, p := range posts {
		pillar := unassignedPillar
		if p.ContentPillar != nil && *p.ContentPillar != "" {
			pillar = *p.ContentPillar
		}
		stats, ok := byPillar[pillar]
		if !ok {
			stats = &models.PillarStats{Pillar: pillar}
			byPillar[pillar] = stats
		}
		stats.Count++
		stats.Shares += p.Shares
		stats.Saves += p.Saves
		engagement[pillar] += p.EngagementRate
	}

	out := make([]models.PillarStats, 0, len(byPillar))
	for pillar, stats := range byPillar {
		stats.AvgEngagement = Round4(engagement[pillar] / float64(stats.Count))
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pillar < out[j].Pillar })
	return out
}

// Totals sums counters across posts
func Totals(posts []models.Post) models.PostTotals {
	t := models.PostTotals{Posts: len(posts)}
	var engagement float64
	for _, p := range posts {
		t.Views += p.Views
		t.Reach += p.Reach
		t.Likes += p.Likes
		t.Comments += p.Comments
		t.Saves += p.Saves
		t.Shares += p.Shares
		t.FollowsGained += p.FollowsGained
		engagement += p.EngagementRate
	}
	if len(posts) > 0 {
		t.AvgEngagement = Round4(engagement / float64(len(posts)))
	}
	return t
}

// TopByEngagement returns the first post with the highest engagement rate
func TopByEngagement(posts []models.Post) *models.Post {
	var top *models.Post
	for i := range posts {
		if top == nil || posts[i].EngagementRate > top.EngagementRate {
			top = &posts[i]
		}
	}
	return top
}
