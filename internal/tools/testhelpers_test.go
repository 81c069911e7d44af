package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/activebuddy/activebuddy/internal/models"
)

// fakeProfileStore is an in-memory ProfileStore for adapter tests.
type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[int64]*models.Profile
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[int64]*models.Profile)}
}

func (s *fakeProfileStore) put(p *models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ChatID] = p
}

func (s *fakeProfileStore) GetOrCreate(ctx context.Context, chatID int64) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[chatID]; ok {
		return p, nil
	}
	p := &models.Profile{ChatID: chatID, Memory: models.Memory{}}
	s.profiles[chatID] = p
	return p, nil
}

func (s *fakeProfileStore) Get(ctx context.Context, chatID int64) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[chatID]
	if !ok {
		return nil, fmt.Errorf("profile not found")
	}
	return p, nil
}

func (s *fakeProfileStore) SetAuthorized(ctx context.Context, chatID int64, authorized bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[chatID]
	if !ok {
		return fmt.Errorf("profile not found")
	}
	p.Authorized = authorized
	return nil
}

func (s *fakeProfileStore) MergeMemory(ctx context.Context, chatID int64, updates models.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[chatID]
	if !ok {
		return fmt.Errorf("profile not found")
	}
	p.Memory = p.Memory.Merge(updates)
	return nil
}

func (s *fakeProfileStore) ClearMemory(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[chatID]
	if !ok {
		return fmt.Errorf("profile not found")
	}
	p.Memory = models.Memory{}
	return nil
}

func (s *fakeProfileStore) ReplaceHistory(ctx context.Context, chatID int64, history []models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[chatID]
	if !ok {
		return fmt.Errorf("profile not found")
	}
	p.History = history
	return nil
}

func (s *fakeProfileStore) SaveStravaTokens(ctx context.Context, chatID int64, tokens *models.StravaTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[chatID]
	if !ok {
		return fmt.Errorf("profile not found")
	}
	p.Strava = tokens
	return nil
}

func (s *fakeProfileStore) List(ctx context.Context) ([]*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}
