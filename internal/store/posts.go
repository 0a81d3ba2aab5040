package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/creatorlab/viralbot/internal/models"
	"github.com/google/uuid"
)

var postColumns = []string{
	"id", "user_id", "instagram_media_id", "platform", "post_date", "caption", "permalink",
	"thumbnail_url", "media_type", "format", "views", "reach", "likes", "comments", "saves",
	"shares", "follows_gained", "follower_count_snapshot", "profile_visits", "total_interactions",
	"replays", "avg_watch_time", "video_view_total_time", "engagement_rate", "save_rate",
	"share_rate", "content_pillar", "content_format", "hook_type", "created_at", "updated_at",
}

// FindPostByMediaID returns the user's post for an external media id, or ErrNotFound
func (s *Store) FindPostByMediaID(ctx context.Context, userID, mediaID string) (*models.Post, error) {
	query, args, err := s.builder.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"user_id": userID, "instagram_media_id": mediaID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var post models.Post
	if err := s.db.GetContext(ctx, &post, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find post %s: %w", mediaID, err)
	}
	return &post, nil
}

// InsertPost inserts a post unless one already exists for the same user and
// media id, in which case ErrPostExists is returned
func (s *Store) InsertPost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	ts := now()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = ts
	}
	post.UpdatedAt = ts
	post.PostDate = normalizeTime(post.PostDate)

	values := map[string]any{
		"id":                 post.ID,
		"user_id":            post.UserID,
		"instagram_media_id": post.InstagramMediaID,
		"content_pillar":     post.ContentPillar,
		"content_format":     post.ContentFormat,
		"hook_type":          post.HookType,
		"created_at":         normalizeTime(post.CreatedAt),
		"updated_at":         post.UpdatedAt,
	}
	for column, value := range post.DescriptiveValues() {
		values[column] = value
	}
	for column, value := range post.MetricValues() {
		values[column] = value
	}

	query, args, err := s.builder.Insert("posts").
		SetMap(values).
		Suffix("ON CONFLICT (user_id, instagram_media_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert post %s: %w", post.InstagramMediaID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPostExists
	}
	return nil
}

// UpdatePost applies a partial update to a post
func (s *Store) UpdatePost(ctx context.Context, id string, fields map[string]any) error {
	set := make(map[string]any, len(fields)+1)
	for column, value := range fields {
		if t, ok := value.(time.Time); ok {
			value = normalizeTime(t)
		}
		set[column] = value
	}
	set["updated_at"] = now()

	query, args, err := s.builder.Update("posts").
		SetMap(set).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update post %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// PostsWithFollowerSnapshot returns the user's posts carrying a follower
// snapshot, oldest first
func (s *Store) PostsWithFollowerSnapshot(ctx context.Context, userID string) ([]models.Post, error) {
	return s.selectPosts(ctx, s.builder.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Gt{"follower_count_snapshot": 0}).
		OrderBy("post_date ASC", "id ASC"))
}

// SetFollowsGained overwrites follows_gained for one post
func (s *Store) SetFollowsGained(ctx context.Context, id string, value int64) error {
	query, args, err := s.builder.Update("posts").
		Set("follows_gained", value).
		Set("updated_at", now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set follows gained for %s: %w", id, err)
	}
	return nil
}

// ExistingMediaIDs reports which of the given media ids the user already has
func (s *Store) ExistingMediaIDs(ctx context.Context, userID string, mediaIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(mediaIDs) == 0 {
		return existing, nil
	}

	query, args, err := s.builder.Select("instagram_media_id").
		From("posts").
		Where(sq.Eq{"user_id": userID, "instagram_media_id": mediaIDs}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to check existing posts: %w", err)
	}
	for _, id := range ids {
		existing[id] = true
	}
	return existing, nil
}

// PostsSince returns the user's posts published at or after since, newest first
func (s *Store) PostsSince(ctx context.Context, userID string, since time.Time) ([]models.Post, error) {
	return s.selectPosts(ctx, s.builder.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"post_date": normalizeTime(since)}).
		OrderBy("post_date DESC", "id ASC"))
}

// RecentPosts returns the user's latest posts, newest first
func (s *Store) RecentPosts(ctx context.Context, userID string, limit int) ([]models.Post, error) {
	return s.selectPosts(ctx, s.builder.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("post_date DESC", "id ASC").
		Limit(uint64(limit)))
}

func (s *Store) selectPosts(ctx context.Context, builder sq.SelectBuilder) ([]models.Post, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var posts []models.Post
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	return posts, nil
}
