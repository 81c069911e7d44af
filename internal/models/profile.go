package models

import (
	"encoding/json"
	"time"
)

// Memory is the open-ended attribute->value coaching memory for a user
// (age, weight, injuries, goals, city, ...). Keys are free-form; the
// model decides what to store via the save_profile_info tool.
type Memory map[string]any

// Merge applies updates last-write-wins per key and returns the result.
// The receiver is not mutated; unrelated existing keys are preserved.
func (m Memory) Merge(updates Memory) Memory {
	merged := make(Memory, len(m)+len(updates))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}

// String returns the memory serialized as compact JSON for embedding in
// the system prompt. Empty memory renders as "{}".
func (m Memory) String() string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// StravaTokens holds the OAuth credentials for the Strava API.
type StravaTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Connected reports whether tokens have been stored at all.
func (t *StravaTokens) Connected() bool {
	return t != nil && t.AccessToken != ""
}

// ExpiresWithin reports whether the access token expires within d.
func (t *StravaTokens) ExpiresWithin(d time.Duration) bool {
	return time.Now().Add(d).After(t.ExpiresAt)
}

// Conversation roles persisted in history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryEntry is one persisted conversation turn. Only user and
// assistant roles with non-empty content are retained.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Profile represents one Telegram chat's durable state.
type Profile struct {
	ChatID     int64          `json:"chat_id"`
	Authorized bool           `json:"authorized"`
	Memory     Memory         `json:"memory"`
	History    []HistoryEntry `json:"history"`
	Strava     *StravaTokens  `json:"strava,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// City returns the user's stored city, checking the keys the model is
// known to use, or "" if none is saved.
func (p *Profile) City() string {
	for _, key := range []string{"city", "location"} {
		if v, ok := p.Memory[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
