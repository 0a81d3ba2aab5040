package models

import "time"

// ReportItem is a flattened insight or recommendation entry
type ReportItem struct {
	Text string `json:"text"`
	Type string `json:"type"` // "pattern", "insight", "adjustment", "validation", "viral", "skill"
}

// WorkedItem explains why a post performed well
type WorkedItem struct {
	PostCaption string `json:"post_caption" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
	Pattern     string `json:"pattern" validate:"required"`
}

// MissItem explains why a post underperformed
type MissItem struct {
	PostCaption string `json:"post_caption" validate:"required"`
	Issue       string `json:"issue" validate:"required"`
	Improvement string `json:"improvement" validate:"required"`
}

// Pattern is an observation detected across posts
type Pattern struct {
	Observation    string `json:"observation" validate:"required"`
	Evidence       string `json:"evidence" validate:"required"`
	Recommendation string `json:"recommendation" validate:"required"`
}

// ViralOpportunity is a content idea with high share potential
type ViralOpportunity struct {
	Idea            string `json:"idea" validate:"required"`
	HookSuggestion  string `json:"hook_suggestion" validate:"required"`
	Format          string `json:"format" validate:"required"`
	WhyItFits       string `json:"why_it_fits" validate:"required"`
	ExpectedOutcome string `json:"expected_outcome" validate:"required"`
}

// PlanDay is one entry of the 7-day posting plan
type PlanDay struct {
	Day         string `json:"day" validate:"required"`
	ContentIdea string `json:"content_idea" validate:"required"`
	Format      string `json:"format" validate:"required"`
	Hook        string `json:"hook" validate:"required"`
	Type        string `json:"type" validate:"oneof='viral attempt' 'audience builder'"`
}

// SkillFocus is a skill to practice during the coming week
type SkillFocus struct {
	Skill  string `json:"skill" validate:"required"`
	Why    string `json:"why" validate:"required"`
	Action string `json:"action" validate:"required"`
}

// ReinforcementNote is a learning carried into future reports
type ReinforcementNote struct {
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"oneof=insight adjustment validation"`
}

// ReportContent is the structured output of the report writer
type ReportContent struct {
	Summary            string              `json:"summary" validate:"required"`
	WhatWorked         []WorkedItem        `json:"what_worked" validate:"required,dive"`
	WhatDidntWork      []MissItem          `json:"what_didnt_work" validate:"required,dive"`
	Patterns           []Pattern           `json:"patterns" validate:"required,dive"`
	ViralOpportunities []ViralOpportunity  `json:"viral_opportunities" validate:"min=3,max=5,dive"`
	NextWeekPlan       []PlanDay           `json:"next_week_plan" validate:"len=7,dive"`
	SkillFocus         []SkillFocus        `json:"skill_focus" validate:"required,dive"`
	ReinforcementNotes []ReinforcementNote `json:"reinforcement_notes" validate:"required,dive"`
}

// ContentMix is the nested plan payload stored with a weekly report
type ContentMix struct {
	NextWeekPlan       []PlanDay          `json:"next_week_plan"`
	ViralOpportunities []ViralOpportunity `json:"viral_opportunities"`
	WhatWorked         []WorkedItem       `json:"what_worked"`
	WhatDidntWork      []MissItem         `json:"what_didnt_work"`
}

// WeeklyReport is a persisted strategy report. It is never edited after insert.
type WeeklyReport struct {
	ID                string       `json:"id"`
	UserID            string       `json:"user_id"`
	WeekStart         time.Time    `json:"week_start"`
	WeekEnd           time.Time    `json:"week_end"`
	Summary           string       `json:"summary"`
	AvgEngagementRate float64      `json:"avg_engagement_rate"`
	TotalViews        int64        `json:"total_views"`
	TotalLikes        int64        `json:"total_likes"`
	TotalComments     int64        `json:"total_comments"`
	TotalSaves        int64        `json:"total_saves"`
	TotalShares       int64        `json:"total_shares"`
	TopPostID         *string      `json:"top_post_id"`
	AIInsights        []ReportItem `json:"ai_insights"`
	Recommendations   []ReportItem `json:"recommendations"`
	ContentMix        ContentMix   `json:"content_mix"`
	CreatedAt         time.Time    `json:"created_at"`
}
