package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSettingsStore is a mock implementation of the settings store
type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) GetSettings(ctx context.Context, keys []string) (map[string]models.Setting, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Setting), args.Error(1)
}

func (m *MockSettingsStore) SetSetting(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		stored     map[string]models.Setting
		storeErr   error
		defaults   Defaults
		expectPage string
		expectUser string
		pageSource string
	}{
		{
			name: "Persisted settings win over defaults",
			stored: map[string]models.Setting{
				PageTokenKey: {ID: PageTokenKey, Value: "stored-page-token"},
				UserTokenKey: {ID: UserTokenKey, Value: "stored-user-token"},
			},
			defaults:   Defaults{PageToken: "env-page", UserToken: "env-user"},
			expectPage: "stored-page-token",
			expectUser: "stored-user-token",
			pageSource: "settings",
		},
		{
			name: "Falls back to defaults per credential",
			stored: map[string]models.Setting{
				UserTokenKey: {ID: UserTokenKey, Value: "stored-user-token"},
			},
			defaults:   Defaults{PageToken: "env-page"},
			expectPage: "env-page",
			expectUser: "stored-user-token",
			pageSource: "env",
		},
		{
			name:       "Both absent",
			stored:     map[string]models.Setting{},
			expectPage: "",
			expectUser: "",
			pageSource: "",
		},
		{
			name:       "Store failure uses defaults",
			storeErr:   errors.New("db down"),
			defaults:   Defaults{PageToken: "env-page", UserToken: "env-user"},
			expectPage: "env-page",
			expectUser: "env-user",
			pageSource: "env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockSettingsStore{}
			store.On("GetSettings", mock.Anything, Keys).Return(tt.stored, tt.storeErr)

			creds := NewResolver(store, tt.defaults).Resolve(context.Background())

			assert.Equal(t, tt.expectPage, creds.PageToken)
			assert.Equal(t, tt.expectUser, creds.UserToken)
			assert.Equal(t, tt.pageSource, creds.PageSource)
			store.AssertExpectations(t)
		})
	}
}

func TestResolver_ResolveIsNotCached(t *testing.T) {
	store := &MockSettingsStore{}
	store.On("GetSettings", mock.Anything, Keys).Return(map[string]models.Setting{
		PageTokenKey: {Value: "first-page-token"},
	}, nil).Once()
	store.On("GetSettings", mock.Anything, Keys).Return(map[string]models.Setting{
		PageTokenKey: {Value: "rotated-page-token"},
	}, nil).Once()

	resolver := NewResolver(store, Defaults{})
	assert.Equal(t, "first-page-token", resolver.Resolve(context.Background()).PageToken)
	assert.Equal(t, "rotated-page-token", resolver.Resolve(context.Background()).PageToken)
	store.AssertNumberOfCalls(t, "GetSettings", 2)
}

func TestCredentials_Require(t *testing.T) {
	err := Credentials{}.Require()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.NotEmpty(t, cfgErr.Hint)

	assert.NoError(t, Credentials{PageToken: "page"}.Require())
	assert.NoError(t, Credentials{UserToken: "user"}.Require())
}

func TestService_Save(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		expectErr bool
	}{
		{name: "Valid page token", key: PageTokenKey, value: "  EAAGabcdefghijk  ", expectErr: false},
		{name: "Unknown key", key: "openai_key", value: "abcdefghijklmnop", expectErr: true},
		{name: "Too short after trim", key: UserTokenKey, value: "   short   ", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockSettingsStore{}
			store.On("SetSetting", mock.Anything, tt.key, "EAAGabcdefghijk").Return(nil)

			err := NewService(store).Save(context.Background(), tt.key, tt.value)
			if tt.expectErr {
				var cfgErr *ConfigurationError
				assert.True(t, errors.As(err, &cfgErr))
				store.AssertNotCalled(t, "SetSetting", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			assert.NoError(t, err)
			store.AssertExpectations(t)
		})
	}
}

func TestService_Status(t *testing.T) {
	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store := &MockSettingsStore{}
	store.On("GetSettings", mock.Anything, Keys).Return(map[string]models.Setting{
		PageTokenKey: {ID: PageTokenKey, Value: "EAAG1234567890abcdef", UpdatedAt: updated},
	}, nil)

	status, err := NewService(store).Status(context.Background())
	require.NoError(t, err)

	page := status[PageTokenKey]
	assert.True(t, page.Set)
	require.NotNil(t, page.Preview)
	assert.Equal(t, "...90abcdef", *page.Preview)
	assert.Equal(t, updated, *page.UpdatedAt)

	user := status[UserTokenKey]
	assert.False(t, user.Set)
	assert.Nil(t, user.Preview)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "...abc", Preview("abc"))
	assert.Equal(t, "...12345678", Preview("xxxxxxxx12345678"))
}
