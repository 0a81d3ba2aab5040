package reports

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/creatorlab/viralbot/internal/models"
)

const promptHeader = `You are an elite social media growth strategist obsessed with engineering virality. The creator's #1 goal is breaking their follower plateau and engineering intentional viral growth. Virality = high shares + saves + reach-to-follower ratio.

CRITICAL: Every analysis and recommendation must serve the goal of MAXIMIZING VIRALITY. Generic engagement advice is not enough. Focus on:
- What content has the highest share/save rates (viral signals)
- What hook patterns trigger shares (not just likes)
- What formats have disproportionate reach (viral potential)
- What content drives FOLLOWS, not just views

Here are the creator's recent posts:
`

const promptFooter = `Produce a comprehensive weekly strategy report. Be brutally specific: reference actual posts by caption, cite exact numbers, and explain WHY something went viral or didn't. Every viral opportunity must be grounded in this creator's proven data patterns. The next week plan should have at least 2-3 explicit "viral attempts" designed for maximum shareability. Compare with previous recommendations if available and note what adjustments to make based on actual results.`

// BuildPrompt renders posts and prior recommendations into the writer
// prompt. The output depends only on its inputs.
func BuildPrompt(posts []models.Post, prior []models.WeeklyReport) string {
	var b strings.Builder
	b.WriteString(promptHeader)

	for _, p := range posts {
		b.WriteString(postLine(p))
		b.WriteByte('\n')
	}

	if lines := priorLines(prior); len(lines) > 0 {
		b.WriteString("\nPrevious report recommendations:\n")
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	b.WriteString(promptFooter)
	return b.String()
}

func postLine(p models.Post) string {
	return fmt.Sprintf(
		"[%s] %s | %q | Views: %d, Reach: %d, Likes: %d, Comments: %d, Saves: %d, Shares: %d, Follows: %d | Eng: %g%% | Save rate: %g%% | Share rate: %g%% | Format: %s | Pillar: %s | Content format: %s | Hook: %s",
		p.PostDate.UTC().Format(time.RFC3339),
		p.Platform,
		p.CaptionText(),
		p.Views, p.Reach, p.Likes, p.Comments, p.Saves, p.Shares, p.FollowsGained,
		p.EngagementRate, p.SaveRate, p.ShareRate,
		p.Format,
		orUnset(p.ContentPillar),
		orUnset(p.ContentFormat),
		orUnset(p.HookType),
	)
}

func priorLines(prior []models.WeeklyReport) []string {
	var lines []string
	for _, r := range prior {
		if len(r.Recommendations) == 0 {
			continue
		}
		data, err := json.Marshal(r.Recommendations)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("Week of %s: %s", r.WeekStart.Format("2006-01-02"), data))
	}
	return lines
}

func orUnset(s *string) string {
	if s == nil || *s == "" {
		return "unset"
	}
	return *s
}
