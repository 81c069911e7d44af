package tools

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/database"
	"github.com/activebuddy/activebuddy/internal/strava"
)

const (
	// StravaToolName is the tool identifier declared to the model.
	StravaToolName = "check_strava"

	// refresh ahead of expiry so an in-flight request doesn't race the cutoff
	tokenExpiryMargin = 60 * time.Second

	stravaNotConnected = "STATUS: NOT CONNECTED. Tell the user to run /connect_strava to link their Strava account."
	stravaReconnect    = "ERROR: Strava authorization expired and could not be refreshed. Tell the user to run /connect_strava again."
	stravaUnavailable  = "Strava is unavailable right now; answer without activity data."
)

// StravaTool fetches the user's recent activities, refreshing the
// OAuth access token first when it is about to expire.
type StravaTool struct {
	profiles database.ProfileStore
	oauth    *strava.OAuth
	client   *strava.Client
	logger   *zap.Logger
}

// NewStravaTool creates the Strava adapter.
func NewStravaTool(profiles database.ProfileStore, oauth *strava.OAuth, client *strava.Client, logger *zap.Logger) *StravaTool {
	return &StravaTool{profiles: profiles, oauth: oauth, client: client, logger: logger}
}

// Name implements Tool.
func (t *StravaTool) Name() string { return StravaToolName }

// Definition implements Tool.
func (t *StravaTool) Definition() openai.ChatCompletionToolUnionParam {
	return openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
		Name:        StravaToolName,
		Description: openai.String("Get the user's recent activities from Strava (last 7 days, any sport)."),
		Parameters: shared.FunctionParameters{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
	})
}

// Execute implements Tool.
func (t *StravaTool) Execute(ctx context.Context, chatID int64, args map[string]any) (string, error) {
	return t.Summary(ctx, chatID), nil
}

// Summary returns the formatted recent-activity report. Shared with the
// /strava command, which sends it to the user directly.
func (t *StravaTool) Summary(ctx context.Context, chatID int64) string {
	profile, err := t.profiles.Get(ctx, chatID)
	if err != nil {
		t.logger.Warn("strava_profile_load_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return stravaUnavailable
	}
	if !profile.Strava.Connected() {
		return stravaNotConnected
	}

	tokens := profile.Strava
	if tokens.ExpiresWithin(tokenExpiryMargin) {
		refreshed, err := t.oauth.Refresh(ctx, tokens.RefreshToken)
		if err != nil {
			t.logger.Warn("strava_token_refresh_failed", zap.Int64("chat_id", chatID), zap.Error(err))
			return stravaReconnect
		}
		// New tokens are persisted before fetching so a crash mid-fetch
		// doesn't lose the rotated refresh token.
		if err := t.profiles.SaveStravaTokens(ctx, chatID, refreshed); err != nil {
			t.logger.Error("strava_token_save_failed", zap.Int64("chat_id", chatID), zap.Error(err))
			return stravaUnavailable
		}
		tokens = refreshed
	}

	activities, err := t.client.RecentActivities(ctx, tokens.AccessToken)
	if err != nil {
		if errors.Is(err, strava.ErrUnauthorized) {
			return stravaReconnect
		}
		t.logger.Warn("strava_fetch_failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return stravaUnavailable
	}

	return strava.Summarize(activities)
}
