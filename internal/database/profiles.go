package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/activebuddy/activebuddy/internal/models"
)

// ProfileRepository handles profile database operations
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `chat_id, authorized, memory, history,
	strava_access_token, strava_refresh_token, strava_expires_at,
	created_at, updated_at`

// GetOrCreate retrieves the profile for a chat, inserting an empty
// unauthorized row on first contact. Idempotent on retry.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, chatID int64) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (chat_id)
		VALUES ($1)
		ON CONFLICT (chat_id) DO UPDATE SET updated_at = NOW()
		RETURNING ` + profileColumns

	return r.scanProfile(r.db.QueryRowContext(ctx, query, chatID))
}

// Get retrieves a profile by chat id. Returns sql.ErrNoRows (wrapped)
// if the profile does not exist.
func (r *ProfileRepository) Get(ctx context.Context, chatID int64) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE chat_id = $1`
	profile, err := r.scanProfile(r.db.QueryRowContext(ctx, query, chatID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("profile not found: %w", err)
	}
	return profile, err
}

// SetAuthorized flips the invite-gate flag.
func (r *ProfileRepository) SetAuthorized(ctx context.Context, chatID int64, authorized bool) error {
	query := `UPDATE profiles SET authorized = $2, updated_at = NOW() WHERE chat_id = $1`
	result, err := r.db.ExecContext(ctx, query, chatID, authorized)
	if err != nil {
		return fmt.Errorf("failed to set authorized: %w", err)
	}
	return requireRow(result)
}

// MergeMemory merges updates into the profile memory last-write-wins
// per key. The merge runs in SQL so concurrent merges for the same chat
// serialize on the row.
func (r *ProfileRepository) MergeMemory(ctx context.Context, chatID int64, updates models.Memory) error {
	if len(updates) == 0 {
		return nil
	}
	updatesJSON, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("failed to marshal memory updates: %w", err)
	}

	query := `UPDATE profiles SET memory = memory || $2::jsonb, updated_at = NOW() WHERE chat_id = $1`
	result, err := r.db.ExecContext(ctx, query, chatID, updatesJSON)
	if err != nil {
		return fmt.Errorf("failed to merge memory: %w", err)
	}
	return requireRow(result)
}

// ClearMemory resets the profile memory to an empty mapping.
func (r *ProfileRepository) ClearMemory(ctx context.Context, chatID int64) error {
	query := `UPDATE profiles SET memory = '{}'::jsonb, updated_at = NOW() WHERE chat_id = $1`
	result, err := r.db.ExecContext(ctx, query, chatID)
	if err != nil {
		return fmt.Errorf("failed to clear memory: %w", err)
	}
	return requireRow(result)
}

// ReplaceHistory stores the bounded conversation window.
func (r *ProfileRepository) ReplaceHistory(ctx context.Context, chatID int64, history []models.HistoryEntry) error {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	query := `UPDATE profiles SET history = $2::jsonb, updated_at = NOW() WHERE chat_id = $1`
	result, err := r.db.ExecContext(ctx, query, chatID, historyJSON)
	if err != nil {
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return requireRow(result)
}

// SaveStravaTokens persists the OAuth credentials for a chat.
func (r *ProfileRepository) SaveStravaTokens(ctx context.Context, chatID int64, tokens *models.StravaTokens) error {
	query := `
		UPDATE profiles
		SET strava_access_token = $2, strava_refresh_token = $3, strava_expires_at = $4, updated_at = NOW()
		WHERE chat_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, chatID, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save strava tokens: %w", err)
	}
	return requireRow(result)
}

// List returns all profiles ordered by last activity, newest first.
func (r *ProfileRepository) List(ctx context.Context) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var profiles []*models.Profile
	for rows.Next() {
		profile, err := r.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ProfileRepository) scanProfile(row rowScanner) (*models.Profile, error) {
	profile := &models.Profile{}
	var memoryJSON, historyJSON []byte
	var accessToken, refreshToken sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(
		&profile.ChatID,
		&profile.Authorized,
		&memoryJSON,
		&historyJSON,
		&accessToken,
		&refreshToken,
		&expiresAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	if err := json.Unmarshal(memoryJSON, &profile.Memory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &profile.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	if accessToken.Valid && accessToken.String != "" {
		profile.Strava = &models.StravaTokens{
			AccessToken:  accessToken.String,
			RefreshToken: refreshToken.String,
		}
		if expiresAt.Valid {
			profile.Strava.ExpiresAt = expiresAt.Time
		}
	}

	return profile, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found")
	}
	return nil
}
