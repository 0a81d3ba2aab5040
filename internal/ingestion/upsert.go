package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creatorlab/viralbot/internal/analytics"
	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/store"
	"github.com/sirupsen/logrus"
)

// PostStore is the post persistence surface used by ingestion.
// FindPostByMediaID returns store.ErrNotFound when absent and InsertPost
// returns store.ErrPostExists when the (user, media id) pair is taken.
type PostStore interface {
	FindPostByMediaID(ctx context.Context, userID, mediaID string) (*models.Post, error)
	InsertPost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, id string, fields map[string]any) error
	PostsWithFollowerSnapshot(ctx context.Context, userID string) ([]models.Post, error)
	SetFollowsGained(ctx context.Context, id string, value int64) error
	ExistingMediaIDs(ctx context.Context, userID string, mediaIDs []string) (map[string]bool, error)
}

// Upserter reconciles freshly fetched posts with stored ones
type Upserter struct {
	store PostStore
	log   logrus.FieldLogger
}

// NewUpserter creates a new upserter
func NewUpserter(store PostStore, log logrus.FieldLogger) *Upserter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Upserter{store: store, log: log}
}

// Upsert inserts the post if the user does not have it yet, otherwise
// updates it without letting zero metrics overwrite stored values
func (u *Upserter) Upsert(ctx context.Context, userID string, post models.Post) (models.UpsertOutcome, error) {
	post.UserID = userID
	entry := u.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"media_id": post.InstagramMediaID,
	})

	existing, err := u.store.FindPostByMediaID(ctx, userID, post.InstagramMediaID)
	switch {
	case err == nil:
		return u.update(ctx, entry, existing, post)
	case !errors.Is(err, store.ErrNotFound):
		return "", fmt.Errorf("lookup failed: %w", err)
	}

	created := post
	if created.PostDate.IsZero() {
		created.PostDate = time.Now().UTC().Truncate(time.Second)
	}
	err = u.store.InsertPost(ctx, &created)
	if err == nil {
		entry.WithField("outcome", models.OutcomeCreated).Debug("Upserted post")
		return models.OutcomeCreated, nil
	}
	if !errors.Is(err, store.ErrPostExists) {
		return "", fmt.Errorf("insert failed: %w", err)
	}

	// Lost an insert race: the row exists now, so take the update path
	existing, err = u.store.FindPostByMediaID(ctx, userID, post.InstagramMediaID)
	if err != nil {
		return "", fmt.Errorf("lookup after conflict failed: %w", err)
	}
	return u.update(ctx, entry, existing, post)
}

func (u *Upserter) update(ctx context.Context, entry logrus.FieldLogger, existing *models.Post, post models.Post) (models.UpsertOutcome, error) {
	fields := analytics.UpdateFields(*existing, post)
	if err := u.store.UpdatePost(ctx, existing.ID, fields); err != nil {
		return "", fmt.Errorf("update failed: %w", err)
	}
	entry.WithFields(logrus.Fields{
		"outcome": models.OutcomeUpdated,
		"fields":  len(fields),
	}).Debug("Upserted post")
	return models.OutcomeUpdated, nil
}
