package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/creatorlab/viralbot/internal/analytics"
	"github.com/creatorlab/viralbot/internal/llm"
	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/notifications"
	"github.com/creatorlab/viralbot/internal/reports"
	"github.com/creatorlab/viralbot/internal/storage"
	"github.com/creatorlab/viralbot/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const testUserID = "test-user"

// TerminalNotifier prints reports and alerts instead of delivering them
type TerminalNotifier struct{}

func (t *TerminalNotifier) SendReport(_ context.Context, report *models.WeeklyReport) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 WEEKLY CONTENT REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("📅 Week: %s → %s\n", report.WeekStart.Format("2006-01-02"), report.WeekEnd.Format("2006-01-02"))
	fmt.Printf("👀 Views: %d | ❤️ Likes: %d | 💬 Comments: %d | 🔖 Saves: %d | 🔁 Shares: %d\n",
		report.TotalViews, report.TotalLikes, report.TotalComments, report.TotalSaves, report.TotalShares)
	fmt.Printf("📈 Avg engagement: %.2f%%\n", report.AvgEngagementRate)
	fmt.Printf("\n📝 %s\n", report.Summary)

	fmt.Println("\n🚀 Viral Opportunities:")
	for i, o := range report.ContentMix.ViralOpportunities {
		fmt.Printf("   %d. %s (%s)\n      🎣 %s\n", i+1, o.Idea, o.Format, o.HookSuggestion)
	}

	fmt.Println("\n🗓  Next Week:")
	for _, d := range report.ContentMix.NextWeekPlan {
		fmt.Printf("   • %-9s %-16s %s\n", d.Day, "["+d.Type+"]", d.ContentIdea)
	}

	fmt.Println("\n💡 Insights:")
	for _, item := range report.AIInsights {
		fmt.Printf("   • (%s) %s\n", item.Type, item.Text)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	return nil
}

func (t *TerminalNotifier) SendAlert(_ context.Context, alert *notifications.Alert) error {
	fmt.Println("\n🚨 ALERT")
	fmt.Printf("Type: %s\n", alert.Type)
	fmt.Printf("Message: %s\n", alert.Message)
	return nil
}

// cannedWriter returns a fixed report so the pipeline runs without a model key
type cannedWriter struct{}

func (cannedWriter) WriteReport(_ context.Context, prompt string) (*models.ReportContent, error) {
	fmt.Printf("\n🧾 Prompt (%d chars) would be sent to the model\n", len(prompt))

	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	plan := make([]models.PlanDay, 0, len(days))
	for i, day := range days {
		kind := "audience builder"
		if i%2 == 0 {
			kind = "viral attempt"
		}
		plan = append(plan, models.PlanDay{
			Day:         day,
			ContentIdea: "Behind the scenes of a " + strings.ToLower(day) + " shoot",
			Format:      "reel",
			Hook:        "You won't believe what we cut",
			Type:        kind,
		})
	}

	return &models.ReportContent{
		Summary: "Reels drove most reach this week; the tutorial carousel earned the most saves.",
		WhatWorked: []models.WorkedItem{
			{PostCaption: "3 editing tricks nobody talks about", Reason: "High save rate", Pattern: "Practical how-to"},
		},
		WhatDidntWork: []models.MissItem{
			{PostCaption: "Monday mood", Issue: "No hook in the first second", Improvement: "Open with the payoff"},
		},
		Patterns: []models.Pattern{
			{Observation: "Tutorials outperform vlogs", Evidence: "2x shares on how-to reels", Recommendation: "Post two tutorials a week"},
		},
		ViralOpportunities: []models.ViralOpportunity{
			{Idea: "Before/after edit", HookSuggestion: "Watch this go from boring to viral", Format: "reel", WhyItFits: "Matches your top pillar", ExpectedOutcome: "Shares"},
			{Idea: "Myth busting", HookSuggestion: "Stop doing this in your edits", Format: "reel", WhyItFits: "Contrarian hooks land well", ExpectedOutcome: "Comments"},
			{Idea: "Toolkit carousel", HookSuggestion: "Save this for your next shoot", Format: "carousel", WhyItFits: "Carousels get saved", ExpectedOutcome: "Saves"},
		},
		NextWeekPlan: plan,
		SkillFocus: []models.SkillFocus{
			{Skill: "Hooks", Why: "Retention drops after 2s", Action: "Script the first line of every reel"},
		},
		ReinforcementNotes: []models.ReinforcementNote{
			{Text: "Keep the tutorial cadence", Type: "validation"},
		},
	}, nil
}

func samplePosts(now time.Time) []models.Post {
	pillar := func(s string) *string { return &s }
	caption := func(s string) *string { return &s }

	posts := []models.Post{
		{InstagramMediaID: "sample_1", Caption: caption("3 editing tricks nobody talks about"), MediaType: "VIDEO", Format: models.FormatReel,
			Views: 18200, Reach: 15100, Likes: 1320, Comments: 88, Saves: 640, Shares: 410, ContentPillar: pillar("education")},
		{InstagramMediaID: "sample_2", Caption: caption("Monday mood"), MediaType: "IMAGE", Format: models.FormatImage,
			Views: 2100, Reach: 1900, Likes: 140, Comments: 6, Saves: 3, Shares: 1, ContentPillar: pillar("lifestyle")},
		{InstagramMediaID: "sample_3", Caption: caption("My full camera kit, swipe →"), MediaType: "CAROUSEL_ALBUM", Format: models.FormatCarousel,
			Views: 6400, Reach: 5200, Likes: 520, Comments: 41, Saves: 380, Shares: 52, ContentPillar: pillar("education")},
		{InstagramMediaID: "sample_4", Caption: caption("Day in the life of a creator"), MediaType: "VIDEO", Format: models.FormatReel,
			Views: 9800, Reach: 8700, Likes: 760, Comments: 54, Saves: 90, Shares: 120, ContentPillar: pillar("behind the scenes")},
	}
	for i := range posts {
		p := &posts[i]
		p.UserID = testUserID
		p.Platform = models.PlatformInstagram
		p.PostDate = now.Add(-time.Duration(i+1) * 36 * time.Hour)
		p.EngagementRate = analytics.Rate(p.Likes+p.Comments+p.Saves+p.Shares, p.Reach)
		p.SaveRate = analytics.Rate(p.Saves, p.Reach)
		p.ShareRate = analytics.Rate(p.Shares, p.Reach)
	}
	return posts
}

func main() {
	fmt.Println("🤖 viralbot - Test Report Generator")
	fmt.Println("===================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	logrus.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := store.Open("sqlite", ":memory:")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	now := time.Now()
	posts := samplePosts(now)
	for i := range posts {
		if err := db.InsertPost(ctx, &posts[i]); err != nil {
			log.Fatalf("Failed to seed post: %v", err)
		}
	}
	fmt.Printf("\n📊 Seeded %d sample posts (virality score %d)\n", len(posts), analytics.ComputeVirality(posts).Score)

	var writer reports.Writer = cannedWriter{}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		client, err := llm.NewClient(llm.Options{APIKey: key, Model: os.Getenv("OPENAI_MODEL")}, logrus.StandardLogger())
		if err != nil {
			log.Fatalf("Failed to create model client: %v", err)
		}
		writer = client
		fmt.Println("🧠 Using the model API for report content")
	} else {
		fmt.Println("🧠 OPENAI_API_KEY not set, using canned report content")
	}

	archive, err := storage.NewLocalStorage("test_output")
	if err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	generator := reports.NewGenerator(reports.Dependencies{
		Store:    db,
		Writer:   writer,
		Archive:  archive,
		Notifier: &TerminalNotifier{},
	}, reports.Options{})

	report, err := generator.Generate(ctx, testUserID)
	if err != nil {
		fmt.Printf("❌ Error generating report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Test report generation completed!")
	fmt.Printf("\n💾 Report saved to: test_output/%s\n", storage.ReportKey(testUserID, report.WeekStart))
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Run 'go test ./internal/reports -v' for more detailed tests")
	fmt.Println("   • Configure real tokens and run the full bot with 'go run cmd/bot/main.go'")
}
