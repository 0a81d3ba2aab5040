package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/creatorlab/viralbot/internal/config"
	"github.com/creatorlab/viralbot/internal/sources"
	"github.com/creatorlab/viralbot/internal/store"
	"github.com/creatorlab/viralbot/internal/tokens"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("🔍 viralbot - Instagram Connectivity Test")
	fmt.Println("==========================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.WarnLevel)

	// Stored tokens take precedence, so read them when the database is reachable
	var settings tokens.SettingsStore
	if db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
		fmt.Printf("⚠️  Database unavailable, using environment tokens only: %v\n", err)
	} else {
		defer db.Close()
		settings = db
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	creds := tokens.NewResolver(settings, tokens.Defaults{
		PageToken: cfg.InstagramPageToken,
		UserToken: cfg.InstagramToken,
	}).Resolve(ctx)

	fmt.Println("\n🔑 Tokens")
	fmt.Println(strings.Repeat("-", 40))
	printToken("Page token", creds.PageToken, creds.PageSource)
	printToken("User token", creds.UserToken, creds.UserSource)

	if err := creds.Require(); err != nil {
		var cfgErr *tokens.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Printf("\n❌ %s\n   💡 %s\n", cfgErr.Message, cfgErr.Hint)
			return
		}
		log.Fatal(err)
	}

	logger := logrus.StandardLogger()
	graph := sources.NewGraphClient(cfg.HTTPTimeout, logger)

	fmt.Println("\n📡 Discovering account...")
	fmt.Println(strings.Repeat("-", 40))
	account, err := sources.NewDiscoverer(graph, cfg.GraphFacebookURL, cfg.GraphInstagramURL, logger).Discover(ctx, creds)
	if err != nil {
		var discoveryErr *sources.DiscoveryError
		if errors.As(err, &discoveryErr) {
			for _, attempt := range discoveryErr.Attempts {
				fmt.Printf("🔸 %-14s ❌ %s\n", attempt.Strategy, attempt.Error)
			}
		}
		fmt.Printf("\n❌ Discovery failed: %v\n", err)
		return
	}
	fmt.Printf("✅ Account %s via %s", account.ExternalAccountID, account.Strategy)
	if account.PageName != "" {
		fmt.Printf(" (page: %s)", account.PageName)
	}
	fmt.Printf("\n   🌐 %s\n", account.BaseURL)

	media := sources.NewMediaLister(graph, logger)
	if followers, err := media.FollowerCount(ctx, account); err != nil {
		fmt.Printf("⚠️  Follower count unavailable: %v\n", err)
	} else {
		fmt.Printf("👥 %d followers\n", followers)
	}

	items, err := media.ListMedia(ctx, account, 5)
	if err != nil {
		fmt.Printf("❌ Listing media failed: %v\n", err)
		return
	}
	fmt.Printf("\n🎞  %d recent media items\n", len(items))
	fmt.Println(strings.Repeat("-", 40))

	insights := sources.NewInsightFetcher(graph, logger)
	for _, item := range items {
		caption := strings.ReplaceAll(item.Caption, "\n", " ")
		if len(caption) > 50 {
			caption = caption[:50] + "..."
		}
		fmt.Printf("🔸 %s %-14s \"%s\"\n", item.ID, item.MediaType, caption)

		ins, err := insights.FetchInsights(ctx, account, item)
		if err != nil {
			fmt.Printf("   ❌ insights: %v\n", err)
			continue
		}
		fmt.Printf("   📊 views=%s reach=%s saves=%s shares=%s\n",
			metric(ins.Views), metric(ins.Reach), metric(ins.Saved), metric(ins.Shares))
	}

	fmt.Println("\n✅ Connectivity test completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Run the bot with: make run")
	fmt.Println("   • Trigger a sync with: curl -X POST localhost:8080/sync -H 'X-User-ID: <id>'")
}

func printToken(name, value, source string) {
	if value == "" {
		fmt.Printf("🔸 %-10s ⚠️  not set\n", name)
		return
	}
	fmt.Printf("🔸 %-10s ✅ %s (from %s)\n", name, tokens.Preview(value), source)
}

func metric(v *int64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}
