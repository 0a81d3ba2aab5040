package analytics

import (
	"sort"

	"github.com/creatorlab/viralbot/internal/models"
)

// FollowerDelta is a recomputed follows_gained value for one post
type FollowerDelta struct {
	PostID        string
	FollowsGained int64
}

// FollowerDeltas recomputes follows_gained from consecutive follower
// snapshots in chronological order. Posts without a snapshot are ignored and
// the earliest post keeps its stored value. Negative deltas clamp to 0.
func FollowerDeltas(posts []models.Post) []FollowerDelta {
	var withSnapshot []models.Post
	for _, p := range posts {
		if p.FollowerCountSnapshot > 0 {
			withSnapshot = append(withSnapshot, p)
		}
	}
	sort.SliceStable(withSnapshot, func(i, j int) bool {
		return withSnapshot[i].PostDate.Before(withSnapshot[j].PostDate)
	})

	if len(withSnapshot) < 2 {
		return nil
	}

	deltas := make([]FollowerDelta, 0, len(withSnapshot)-1)
	for i := 1; i < len(withSnapshot); i++ {
		gained := withSnapshot[i].FollowerCountSnapshot - withSnapshot[i-1].FollowerCountSnapshot
		if gained < 0 {
			gained = 0
		}
		deltas = append(deltas, FollowerDelta{
			PostID:        withSnapshot[i].ID,
			FollowsGained: gained,
		})
	}
	return deltas
}
