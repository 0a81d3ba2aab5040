package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/creatorlab/viralbot/internal/models"
)

// GetSettings returns the stored settings among keys, keyed by id
func (s *Store) GetSettings(ctx context.Context, keys []string) (map[string]models.Setting, error) {
	out := make(map[string]models.Setting)
	if len(keys) == 0 {
		return out, nil
	}

	query, args, err := s.builder.Select("id", "value", "updated_at").
		From("settings").
		Where(sq.Eq{"id": keys}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var settings []models.Setting
	if err := s.db.SelectContext(ctx, &settings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	for _, setting := range settings {
		out[setting.ID] = setting
	}
	return out, nil
}

// SetSetting inserts or replaces a setting value
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	query, args, err := s.builder.Insert("settings").
		Columns("id", "value", "updated_at").
		Values(key, value, now()).
		Suffix("ON CONFLICT (id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}
