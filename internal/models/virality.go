package models

// ViralityScore is the headline 0-100 score for a window of posts
type ViralityScore struct {
	Score         int      `json:"score"`
	ShareRate     float64  `json:"share_rate"`
	SaveRate      float64  `json:"save_rate"`
	ViralSpikes   int      `json:"viral_spikes"`
	AvgEngagement float64  `json:"avg_engagement"`
	BestViralPost *PostRef `json:"best_viral_post"`
}

// PillarStats aggregates posts sharing the same content pillar
type PillarStats struct {
	Pillar        string  `json:"pillar"`
	Count         int     `json:"count"`
	AvgEngagement float64 `json:"avg_engagement"`
	Shares        int64   `json:"shares"`
	Saves         int64   `json:"saves"`
}

// PostTotals sums the counters of a set of posts
type PostTotals struct {
	Posts         int     `json:"posts"`
	Views         int64   `json:"views"`
	Reach         int64   `json:"reach"`
	Likes         int64   `json:"likes"`
	Comments      int64   `json:"comments"`
	Saves         int64   `json:"saves"`
	Shares        int64   `json:"shares"`
	FollowsGained int64   `json:"follows_gained"`
	AvgEngagement float64 `json:"avg_engagement"`
}
