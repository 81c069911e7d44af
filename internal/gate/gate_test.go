package gate

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/models"
)

type stubStore struct {
	profiles map[int64]*models.Profile
	failAuth bool
}

func newStubStore() *stubStore {
	return &stubStore{profiles: make(map[int64]*models.Profile)}
}

func (s *stubStore) GetOrCreate(ctx context.Context, chatID int64) (*models.Profile, error) {
	if p, ok := s.profiles[chatID]; ok {
		return p, nil
	}
	p := &models.Profile{ChatID: chatID, Memory: models.Memory{}}
	s.profiles[chatID] = p
	return p, nil
}

func (s *stubStore) Get(ctx context.Context, chatID int64) (*models.Profile, error) {
	if p, ok := s.profiles[chatID]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

func (s *stubStore) SetAuthorized(ctx context.Context, chatID int64, authorized bool) error {
	if s.failAuth {
		return errors.New("db down")
	}
	s.profiles[chatID].Authorized = authorized
	return nil
}

func (s *stubStore) MergeMemory(ctx context.Context, chatID int64, updates models.Memory) error {
	return nil
}

func (s *stubStore) ClearMemory(ctx context.Context, chatID int64) error { return nil }

func (s *stubStore) ReplaceHistory(ctx context.Context, chatID int64, history []models.HistoryEntry) error {
	return nil
}

func (s *stubStore) SaveStravaTokens(ctx context.Context, chatID int64, tokens *models.StravaTokens) error {
	return nil
}

func (s *stubStore) List(ctx context.Context) ([]*models.Profile, error) { return nil, nil }

func TestCheck_AuthorizedChatPassesThrough(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.profiles[1] = &models.Profile{ChatID: 1, Authorized: true}
	g := New(store, "secret", zap.NewNop())

	decision, err := g.Check(context.Background(), 1, "any message")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision != Authorized {
		t.Errorf("Expected Authorized, got %v", decision)
	}
}

func TestCheck_InviteCodeUnlocks(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	g := New(store, "secret", zap.NewNop())

	decision, err := g.Check(context.Background(), 1, "  secret \n")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision != InviteAccepted {
		t.Errorf("Expected InviteAccepted, got %v", decision)
	}
	if !store.profiles[1].Authorized {
		t.Error("Expected authorization persisted")
	}

	// Subsequent messages pass straight through.
	decision, err = g.Check(context.Background(), 1, "what's my plan?")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision != Authorized {
		t.Errorf("Expected Authorized after unlock, got %v", decision)
	}
}

func TestCheck_WrongCodeStaysLocked(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	g := New(store, "secret", zap.NewNop())

	decision, err := g.Check(context.Background(), 1, "guess")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision != PendingInvite {
		t.Errorf("Expected PendingInvite, got %v", decision)
	}
	if store.profiles[1].Authorized {
		t.Error("Expected chat to stay locked")
	}
}

func TestCheck_PersistFailureIsAnError(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.failAuth = true
	g := New(store, "secret", zap.NewNop())

	if _, err := g.Check(context.Background(), 1, "secret"); err == nil {
		t.Fatal("Expected persistence failure to surface")
	}
}

func TestIsAuthorized(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	g := New(store, "secret", zap.NewNop())

	ok, err := g.IsAuthorized(context.Background(), 1)
	if err != nil {
		t.Fatalf("IsAuthorized failed: %v", err)
	}
	if ok {
		t.Error("Expected new chat to be locked")
	}

	store.profiles[1].Authorized = true
	ok, err = g.IsAuthorized(context.Background(), 1)
	if err != nil {
		t.Fatalf("IsAuthorized failed: %v", err)
	}
	if !ok {
		t.Error("Expected authorized chat")
	}
}
