package strava

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/activebuddy/activebuddy/internal/models"
)

const (
	authURL  = "https://www.strava.com/oauth/authorize"
	tokenURL = "https://www.strava.com/oauth/token"
)

// OAuth handles the Strava authorization-code and refresh-token
// exchanges.
type OAuth struct {
	conf *oauth2.Config
}

// NewOAuth creates the OAuth helper. redirectURL is the public
// /strava/callback endpoint.
func NewOAuth(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"activity:read_all"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
				// Strava wants client_id/client_secret in the POST body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// SetTokenURL overrides the token endpoint. Used by tests.
func (o *OAuth) SetTokenURL(url string) {
	o.conf.Endpoint.TokenURL = url
}

// AuthCodeURL returns the authorization URL for a chat; the chat id
// rides in the OAuth state parameter so the callback can find the user.
func (o *OAuth) AuthCodeURL(chatID int64) string {
	return o.conf.AuthCodeURL(
		strconv.FormatInt(chatID, 10),
		oauth2.SetAuthURLParam("approval_prompt", "force"),
	)
}

// Exchange trades an authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code string) (*models.StravaTokens, error) {
	token, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return fromOAuth2Token(token), nil
}

// Refresh trades a refresh token for a fresh access token.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*models.StravaTokens, error) {
	source := o.conf.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force a refresh
	})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return fromOAuth2Token(token), nil
}

func fromOAuth2Token(token *oauth2.Token) *models.StravaTokens {
	tokens := &models.StravaTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	// Strava reports expiry as expires_at (unix seconds) alongside the
	// standard expires_in; prefer it when present.
	if expiresAt, ok := token.Extra("expires_at").(float64); ok && expiresAt > 0 {
		tokens.ExpiresAt = time.Unix(int64(expiresAt), 0)
	}
	return tokens
}
