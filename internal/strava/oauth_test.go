package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()

	oauth := NewOAuth("12345", "secret", "https://bot.example.com/strava/callback")
	raw := oauth.AuthCodeURL(777)

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse auth URL: %v", err)
	}

	if !strings.HasPrefix(raw, "https://www.strava.com/oauth/authorize") {
		t.Errorf("Unexpected auth URL prefix: %s", raw)
	}
	q := parsed.Query()
	if q.Get("state") != "777" {
		t.Errorf("Expected state to carry chat id, got %s", q.Get("state"))
	}
	if q.Get("approval_prompt") != "force" {
		t.Errorf("Expected approval_prompt=force, got %s", q.Get("approval_prompt"))
	}
	if q.Get("scope") != "activity:read_all" {
		t.Errorf("Expected activity:read_all scope, got %s", q.Get("scope"))
	}
	if q.Get("client_id") != "12345" {
		t.Errorf("Expected client id, got %s", q.Get("client_id"))
	}
}

func TestExchange_UsesStravaExpiresAt(t *testing.T) {
	t.Parallel()

	expiresAt := time.Now().Add(6 * time.Hour).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
		}
		if r.Form.Get("code") != "authcode" {
			t.Errorf("Expected code=authcode, got %s", r.Form.Get("code"))
		}
		if r.Form.Get("client_id") != "12345" {
			t.Errorf("Expected client_id in body, got %s", r.Form.Get("client_id"))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"at","refresh_token":"rt","expires_in":21600,"expires_at":%d,"token_type":"Bearer"}`, expiresAt)
	}))
	defer server.Close()

	oauth := NewOAuth("12345", "secret", "https://bot.example.com/strava/callback")
	oauth.SetTokenURL(server.URL)

	tokens, err := oauth.Exchange(context.Background(), "authcode")
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	if tokens.AccessToken != "at" || tokens.RefreshToken != "rt" {
		t.Errorf("Unexpected tokens: %+v", tokens)
	}
	if tokens.ExpiresAt.Unix() != expiresAt {
		t.Errorf("Expected expiry %d, got %d", expiresAt, tokens.ExpiresAt.Unix())
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("Expected refresh_token grant, got %s", r.Form.Get("grant_type"))
		}
		if r.Form.Get("refresh_token") != "old-rt" {
			t.Errorf("Expected refresh token in body, got %s", r.Form.Get("refresh_token"))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-at","refresh_token":"new-rt","expires_in":21600,"token_type":"Bearer"}`)
	}))
	defer server.Close()

	oauth := NewOAuth("12345", "secret", "https://bot.example.com/strava/callback")
	oauth.SetTokenURL(server.URL)

	tokens, err := oauth.Refresh(context.Background(), "old-rt")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if tokens.AccessToken != "new-at" {
		t.Errorf("Expected refreshed access token, got %s", tokens.AccessToken)
	}
	if tokens.RefreshToken != "new-rt" {
		t.Errorf("Expected rotated refresh token, got %s", tokens.RefreshToken)
	}
}
