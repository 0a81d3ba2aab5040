package tokens

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// minTokenLength rejects values that cannot be real provider tokens
const minTokenLength = 10

// Status describes one stored setting without exposing its value
type Status struct {
	Set       bool       `json:"set"`
	UpdatedAt *time.Time `json:"updated_at"`
	Preview   *string    `json:"preview"`
}

// Service manages the token settings exposed over the API
type Service struct {
	settings SettingsStore
}

// NewService creates a new token settings service
func NewService(settings SettingsStore) *Service {
	return &Service{settings: settings}
}

// Status reports which token settings are stored
func (s *Service) Status(ctx context.Context) (map[string]Status, error) {
	stored, err := s.settings.GetSettings(ctx, Keys)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	out := make(map[string]Status, len(Keys))
	for _, key := range Keys {
		setting, ok := stored[key]
		if !ok || setting.Value == "" {
			out[key] = Status{}
			continue
		}
		updated := setting.UpdatedAt
		preview := Preview(setting.Value)
		out[key] = Status{Set: true, UpdatedAt: &updated, Preview: &preview}
	}
	return out, nil
}

// Save validates and stores a token setting
func (s *Service) Save(ctx context.Context, key, value string) error {
	if !IsKnownKey(key) {
		return &ConfigurationError{
			Message: fmt.Sprintf("unknown setting key %q", key),
			Hint:    "valid keys: " + strings.Join(Keys, ", "),
		}
	}

	value = strings.TrimSpace(value)
	if len(value) < minTokenLength {
		return &ConfigurationError{
			Message: "invalid token value",
			Hint:    fmt.Sprintf("token must be at least %d characters", minTokenLength),
		}
	}

	if err := s.settings.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// IsKnownKey reports whether key is a token setting
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Preview masks a token down to its last 8 characters
func Preview(value string) string {
	if len(value) <= 8 {
		return "..." + value
	}
	return "..." + value[len(value)-8:]
}
