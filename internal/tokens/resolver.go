package tokens

import (
	"context"
	"strings"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/sirupsen/logrus"
)

// Setting keys holding provider credentials
const (
	PageTokenKey = "instagram_page_token"
	UserTokenKey = "instagram_access_token"
)

// Keys lists every setting the token resolver reads
var Keys = []string{PageTokenKey, UserTokenKey}

// SettingsStore is the persisted key/value settings surface
type SettingsStore interface {
	GetSettings(ctx context.Context, keys []string) (map[string]models.Setting, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Credentials are the provider tokens resolved for one run. Either may be empty.
type Credentials struct {
	PageToken  string
	UserToken  string
	PageSource string // "settings", "env" or empty
	UserSource string
}

// Require fails when neither token is available
func (c Credentials) Require() error {
	if c.PageToken == "" && c.UserToken == "" {
		return &ConfigurationError{
			Message: "no Instagram token configured",
			Hint:    "save instagram_page_token or instagram_access_token in settings, or set INSTAGRAM_PAGE_ACCESS_TOKEN / INSTAGRAM_ACCESS_TOKEN",
		}
	}
	return nil
}

// Defaults are the process-wide fallback tokens
type Defaults struct {
	PageToken string
	UserToken string
}

// Resolver picks persisted tokens over configured defaults
type Resolver struct {
	settings SettingsStore
	defaults Defaults
}

// NewResolver creates a new token resolver
func NewResolver(settings SettingsStore, defaults Defaults) *Resolver {
	return &Resolver{
		settings: settings,
		defaults: defaults,
	}
}

// Resolve looks up both tokens. Nothing is cached between calls.
func (r *Resolver) Resolve(ctx context.Context) Credentials {
	var stored map[string]models.Setting
	if r.settings != nil {
		var err error
		stored, err = r.settings.GetSettings(ctx, Keys)
		if err != nil {
			logrus.Warnf("Failed to read token settings, using configured defaults: %v", err)
			stored = nil
		}
	}

	creds := Credentials{}
	creds.PageToken, creds.PageSource = pick(stored, PageTokenKey, r.defaults.PageToken)
	creds.UserToken, creds.UserSource = pick(stored, UserTokenKey, r.defaults.UserToken)

	logrus.Debugf("Resolved tokens: page=%s user=%s", sourceOrNone(creds.PageSource), sourceOrNone(creds.UserSource))
	return creds
}

func pick(stored map[string]models.Setting, key, fallback string) (string, string) {
	if s, ok := stored[key]; ok {
		if v := strings.TrimSpace(s.Value); v != "" {
			return v, "settings"
		}
	}
	if v := strings.TrimSpace(fallback); v != "" {
		return v, "env"
	}
	return "", ""
}

func sourceOrNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
