package analytics

import (
	"math"

	"github.com/creatorlab/viralbot/internal/models"
)

// Component caps of the virality score. Shares weigh most, then saves;
// spike frequency and baseline engagement are minor signals.
const (
	shareComponentCap      = 40
	saveComponentCap       = 30
	spikeComponentCap      = 20
	engagementComponentCap = 10

	spikeMultiplier = 3
)

// ComputeVirality scores a window of posts from 0 to 100. An empty window
// scores 0 with no best post.
func ComputeVirality(posts []models.Post) models.ViralityScore {
	if len(posts) == 0 {
		return models.ViralityScore{}
	}

	var views, shares, saves int64
	var engagement float64
	for _, p := range posts {
		views += p.Views
		shares += p.Shares
		saves += p.Saves
		engagement += p.EngagementRate
	}

	n := float64(len(posts))
	shareRate := ratio(shares, views)
	saveRate := ratio(saves, views)
	avgEngagement := engagement / n

	meanViews := float64(views) / n
	spikes := 0
	for _, p := range posts {
		if float64(p.Views) > spikeMultiplier*meanViews {
			spikes++
		}
	}

	raw := math.Min(shareRate*10, shareComponentCap) +
		math.Min(saveRate*6, saveComponentCap) +
		math.Min(100*float64(spikes)/n, spikeComponentCap) +
		math.Min(avgEngagement*2, engagementComponentCap)

	return models.ViralityScore{
		Score:         clamp(int(math.Round(raw)), 0, 100),
		ShareRate:     Round4(shareRate),
		SaveRate:      Round4(saveRate),
		ViralSpikes:   spikes,
		AvgEngagement: Round4(avgEngagement),
		BestViralPost: bestViralPost(posts),
	}
}

// bestViralPost returns the first post with the most shares+saves
func bestViralPost(posts []models.Post) *models.PostRef {
	best := -1
	var bestScore int64
	for i, p := range posts {
		if score := p.Shares + p.Saves; best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil
	}
	return refOf(posts[best])
}

func refOf(p models.Post) *models.PostRef {
	return &models.PostRef{
		ID:      p.ID,
		Caption: p.CaptionText(),
		Shares:  p.Shares,
		Saves:   p.Saves,
	}
}

func ratio(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
