package database

import (
	"context"

	"github.com/activebuddy/activebuddy/internal/models"
)

// ProfileStore defines the profile operations consumed by the gate,
// the tool adapters, and the responder worker. The interface enables
// mock implementations in tests.
type ProfileStore interface {
	GetOrCreate(ctx context.Context, chatID int64) (*models.Profile, error)
	Get(ctx context.Context, chatID int64) (*models.Profile, error)
	SetAuthorized(ctx context.Context, chatID int64, authorized bool) error
	MergeMemory(ctx context.Context, chatID int64, updates models.Memory) error
	ClearMemory(ctx context.Context, chatID int64) error
	ReplaceHistory(ctx context.Context, chatID int64, history []models.HistoryEntry) error
	SaveStravaTokens(ctx context.Context, chatID int64, tokens *models.StravaTokens) error
	List(ctx context.Context) ([]*models.Profile, error)
}

// Ensure the concrete type implements the interface
var _ ProfileStore = (*ProfileRepository)(nil)
