package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/creatorlab/viralbot/internal/analytics"
	"github.com/creatorlab/viralbot/internal/events"
	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/runlock"
	"github.com/creatorlab/viralbot/internal/storage"
	"github.com/creatorlab/viralbot/internal/tokens"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// CredentialResolver resolves provider tokens for a run
type CredentialResolver interface {
	Resolve(ctx context.Context) tokens.Credentials
}

// AccountDiscoverer resolves the account a credential can read
type AccountDiscoverer interface {
	Discover(ctx context.Context, creds tokens.Credentials) (*models.AccountHandle, error)
}

// MediaSource lists media and account counters
type MediaSource interface {
	ListMedia(ctx context.Context, account *models.AccountHandle, limit int) ([]models.MediaItem, error)
	FollowerCount(ctx context.Context, account *models.AccountHandle) (int64, error)
}

// InsightSource fetches per-media metrics
type InsightSource interface {
	FetchInsights(ctx context.Context, account *models.AccountHandle, media models.MediaItem) (models.Insights, error)
}

// Dependencies are the collaborators of a sync Service. Archive, Publisher
// and Locker are optional.
type Dependencies struct {
	Resolver   CredentialResolver
	Discoverer AccountDiscoverer
	Media      MediaSource
	Insights   InsightSource
	Store      PostStore
	Archive    storage.StorageInterface
	Publisher  events.Publisher
	Locker     runlock.Locker
	Logger     logrus.FieldLogger
}

// Options tune a sync run
type Options struct {
	MediaLimit  int
	Concurrency int
	Timeout     time.Duration
	LockTTL     time.Duration
}

// Service runs the ingestion pipeline for one user at a time
type Service struct {
	deps     Dependencies
	opts     Options
	upserter *Upserter
	log      logrus.FieldLogger
	metrics  *Metrics
	mu       sync.RWMutex
}

// Metrics holds sync run metrics
type Metrics struct {
	Runs            int       `json:"runs"`
	FailedRuns      int       `json:"failed_runs"`
	TotalSynced     int       `json:"total_synced"`
	LastRun         time.Time `json:"last_run"`
	LastRunDuration string    `json:"last_run_duration"`
	LastUserID      string    `json:"last_user_id"`
	LastAccountID   string    `json:"last_account_id"`
	LastStrategy    string    `json:"last_strategy"`
	LastSynced      int       `json:"last_synced"`
	LastErrors      int       `json:"last_errors"`
	LastError       string    `json:"last_error,omitempty"`
}

type fetchResult struct {
	insights models.Insights
	err      error
}

// NewService creates a new ingestion service
func NewService(deps Dependencies, opts Options) *Service {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if deps.Locker == nil {
		deps.Locker = runlock.NewLocalLocker()
	}
	if opts.MediaLimit <= 0 {
		opts.MediaLimit = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = opts.Timeout + time.Minute
	}

	return &Service{
		deps:     deps,
		opts:     opts,
		upserter: NewUpserter(deps.Store, deps.Logger),
		log:      deps.Logger,
		metrics:  &Metrics{},
	}
}

// RunSync pulls the user's media and reconciles it with stored posts. It
// fails only when credentials are missing, discovery is exhausted or a run
// is already in progress; per-item failures are counted in the summary.
func (s *Service) RunSync(ctx context.Context, userID string) (*models.SyncResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	start := time.Now()
	entry := s.log.WithField("user_id", userID)
	entry.Info("Starting sync run")

	release, err := s.deps.Locker.Acquire(ctx, "sync:"+userID, s.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	creds := s.deps.Resolver.Resolve(ctx)
	if err := creds.Require(); err != nil {
		s.recordFailure(userID, err)
		return nil, err
	}

	account, err := s.deps.Discoverer.Discover(ctx, creds)
	if err != nil {
		s.recordFailure(userID, err)
		return nil, err
	}

	result := &models.SyncResult{
		UserID:    userID,
		AccountID: account.ExternalAccountID,
		PageName:  account.PageName,
		Strategy:  account.Strategy,
		StartedAt: start.UTC(),
	}

	followers, err := s.deps.Media.FollowerCount(ctx, account)
	if err != nil {
		entry.Warnf("Follower count unavailable, snapshots skipped: %v", err)
		followers = 0
	}

	items, err := s.deps.Media.ListMedia(ctx, account, s.opts.MediaLimit)
	if err != nil {
		entry.Errorf("Failed to list media: %v", err)
		result.AddError(err.Error())
		result.Message = "Failed to list media from Instagram"
		s.finish(ctx, result, start)
		return result, nil
	}
	if len(items) == 0 {
		result.Message = "No media found on this Instagram account"
		s.finish(ctx, result, start)
		return result, nil
	}

	result.Total = len(items)
	valid := make([]models.MediaItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			result.Skipped++
			continue
		}
		valid = append(valid, item)
	}

	s.logExisting(ctx, entry, userID, valid)

	fetched := s.fetchInsights(ctx, account, valid)

	for i, item := range valid {
		if fetched[i].err != nil {
			result.AddError(fmt.Sprintf("%s: insights: %v", item.ID, fetched[i].err))
			continue
		}
		if err := ctx.Err(); err != nil {
			result.AddError(fmt.Sprintf("%s: %v", item.ID, err))
			continue
		}

		post := analytics.Normalize(userID, item, fetched[i].insights, followers)
		outcome, err := s.upserter.Upsert(ctx, userID, post)
		if err != nil {
			entry.WithFields(logrus.Fields{
				"media_id": item.ID,
				"error":    err.Error(),
			}).Warn("Upsert failed")
			result.AddError(fmt.Sprintf("%s: %v", item.ID, err))
			continue
		}

		result.Synced++
		if outcome == models.OutcomeCreated {
			result.Created++
		} else {
			result.Updated++
		}
	}

	// Runs strictly after every upsert of the batch
	if ctx.Err() == nil {
		updated, err := s.RecomputeFollowerDeltas(ctx, userID)
		if err != nil {
			entry.Warnf("Follower delta pass failed: %v", err)
		}
		result.DeltasUpdated = updated
	}

	result.Message = fmt.Sprintf("Synced %d posts from Instagram", result.Synced)
	if result.Errors > 0 {
		result.Message += fmt.Sprintf(" (%d errors)", result.Errors)
	}

	s.finish(ctx, result, start)
	return result, nil
}

// fetchInsights fetches insights for every item with bounded parallelism.
// Results keep the input order; failures stay per item.
func (s *Service) fetchInsights(ctx context.Context, account *models.AccountHandle, items []models.MediaItem) []fetchResult {
	results := make([]fetchResult, len(items))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = fetchResult{err: err}
				return nil
			}

			ins, err := s.deps.Insights.FetchInsights(ctx, account, item)
			results[i] = fetchResult{insights: ins, err: err}

			fields := logrus.Fields{"media_id": item.ID, "metrics": ins.Count()}
			if err != nil {
				fields["error"] = err.Error()
				s.log.WithFields(fields).Warn("Insight fetch failed")
			} else {
				s.log.WithFields(fields).Debug("Insight fetch succeeded")
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// RecomputeFollowerDeltas rewrites follows_gained from consecutive follower
// snapshots over the user's whole post history
func (s *Service) RecomputeFollowerDeltas(ctx context.Context, userID string) (int, error) {
	posts, err := s.deps.Store.PostsWithFollowerSnapshot(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load follower snapshots: %w", err)
	}

	updated := 0
	for _, delta := range analytics.FollowerDeltas(posts) {
		if err := s.deps.Store.SetFollowsGained(ctx, delta.PostID, delta.FollowsGained); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (s *Service) logExisting(ctx context.Context, entry logrus.FieldLogger, userID string, items []models.MediaItem) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	existing, err := s.deps.Store.ExistingMediaIDs(ctx, userID, ids)
	if err != nil {
		entry.Debugf("Existing media check failed: %v", err)
		return
	}
	entry.WithFields(logrus.Fields{
		"existing": len(existing),
		"new":      len(ids) - len(existing),
	}).Info("Reconciling media")
}

// finish records metrics and hands the summary to the archive and event bus.
// Both are best-effort and run even if the sync deadline has passed.
func (s *Service) finish(ctx context.Context, result *models.SyncResult, start time.Time) {
	duration := time.Since(start)
	result.Duration = duration.String()
	s.updateMetrics(result, duration)

	s.log.WithFields(logrus.Fields{
		"user_id":  result.UserID,
		"synced":   result.Synced,
		"created":  result.Created,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
		"duration": result.Duration,
	}).Info("Sync run completed")

	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if s.deps.Archive != nil {
		if err := storage.StoreJSON(postCtx, s.deps.Archive, storage.SyncKey(result.UserID, result.StartedAt), result); err != nil {
			s.log.Warnf("Failed to archive sync summary: %v", err)
		}
	}
	if err := s.deps.Publisher.Publish(postCtx, events.TypeSyncCompleted, result.UserID, result); err != nil {
		s.log.Warnf("Failed to publish sync event: %v", err)
	}
}

func (s *Service) updateMetrics(result *models.SyncResult, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Runs++
	s.metrics.TotalSynced += result.Synced
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.LastUserID = result.UserID
	s.metrics.LastAccountID = result.AccountID
	s.metrics.LastStrategy = result.Strategy
	s.metrics.LastSynced = result.Synced
	s.metrics.LastErrors = result.Errors
	s.metrics.LastError = ""
}

func (s *Service) recordFailure(userID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Runs++
	s.metrics.FailedRuns++
	s.metrics.LastRun = time.Now()
	s.metrics.LastUserID = userID
	s.metrics.LastError = err.Error()

	var cfgErr *tokens.ConfigurationError
	if errors.As(err, &cfgErr) {
		s.log.WithField("user_id", userID).Warnf("Sync aborted: %v", err)
		return
	}
	s.log.WithField("user_id", userID).Errorf("Sync failed: %v", err)
}

// Snapshot returns a copy of the current metrics
func (s *Service) Snapshot() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.metrics
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
