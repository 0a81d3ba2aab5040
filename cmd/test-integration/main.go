package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/creatorlab/viralbot/internal/analytics"
	"github.com/creatorlab/viralbot/internal/config"
	"github.com/creatorlab/viralbot/internal/ingestion"
	"github.com/creatorlab/viralbot/internal/sources"
	"github.com/creatorlab/viralbot/internal/storage"
	"github.com/creatorlab/viralbot/internal/store"
	"github.com/creatorlab/viralbot/internal/tokens"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const testUserID = "integration-user"

func main() {
	fmt.Println("🧪 viralbot - Local Integration Test")
	fmt.Println("====================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.InfoLevel)

	// A throwaway database keeps real data untouched
	db, err := store.Open("sqlite", ":memory:")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	archive, err := storage.NewLocalStorage("test_output")
	if err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	logger := logrus.StandardLogger()
	graph := sources.NewGraphClient(cfg.HTTPTimeout, logger)
	service := ingestion.NewService(ingestion.Dependencies{
		Resolver: tokens.NewResolver(nil, tokens.Defaults{
			PageToken: cfg.InstagramPageToken,
			UserToken: cfg.InstagramToken,
		}),
		Discoverer: sources.NewDiscoverer(graph, cfg.GraphFacebookURL, cfg.GraphInstagramURL, logger),
		Media:      sources.NewMediaLister(graph, logger),
		Insights:   sources.NewInsightFetcher(graph, logger),
		Store:      db,
		Archive:    archive,
		Logger:     logger,
	}, ingestion.Options{
		MediaLimit:  cfg.SyncMediaLimit,
		Concurrency: cfg.SyncConcurrency,
	})

	fmt.Println("🔍 Running a full sync against the Graph API...")
	fmt.Println("⏱️  This will call real APIs and may take 30-60 seconds...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := service.RunSync(ctx, testUserID)
	if err != nil {
		var cfgErr *tokens.ConfigurationError
		var discoveryErr *sources.DiscoveryError
		switch {
		case errors.As(err, &cfgErr):
			fmt.Printf("❌ %s\n💡 %s\n", cfgErr.Message, cfgErr.Hint)
		case errors.As(err, &discoveryErr):
			fmt.Println("❌ No Instagram account found. Attempts:")
			for _, a := range discoveryErr.Attempts {
				fmt.Printf("   • %s: %s\n", a.Strategy, a.Error)
			}
		default:
			fmt.Printf("❌ Sync failed: %v\n", err)
		}
		return
	}

	fmt.Printf("\n✅ %s\n", result.Message)
	fmt.Printf("   👤 Account %s via %s\n", result.AccountID, result.Strategy)
	fmt.Printf("   📦 total=%d created=%d updated=%d skipped=%d errors=%d\n",
		result.Total, result.Created, result.Updated, result.Skipped, result.Errors)
	for _, detail := range result.ErrorDetails {
		fmt.Printf("   ⚠️  %s\n", detail)
	}

	// A second pass must update every post and create none
	fmt.Println("\n🔁 Re-running sync to check idempotency...")
	again, err := service.RunSync(ctx, testUserID)
	if err != nil {
		fmt.Printf("❌ Second sync failed: %v\n", err)
		return
	}
	if again.Created == 0 {
		fmt.Printf("   ✅ No duplicates (%d updated)\n", again.Updated)
	} else {
		fmt.Printf("   ❌ Second run created %d posts\n", again.Created)
	}

	posts, err := db.RecentPosts(ctx, testUserID, 500)
	if err != nil {
		log.Fatalf("Failed to read posts: %v", err)
	}

	score := analytics.ComputeVirality(posts)
	fmt.Println("\n" + strings.Repeat("-", 40))
	fmt.Printf("🔥 Virality score: %d/100\n", score.Score)
	fmt.Printf("   share rate %.2f%% | save rate %.2f%% | spikes %d\n", score.ShareRate, score.SaveRate, score.ViralSpikes)
	if score.BestViralPost != nil {
		fmt.Printf("   🏆 Best post: \"%s\"\n", score.BestViralPost.Caption)
	}

	fmt.Println("\n✅ Local integration test completed!")
	fmt.Println("   • Sync summaries were archived under test_output/")
}
