package handlers

import (
	"context"
	"errors"

	"github.com/activebuddy/activebuddy/internal/models"
	"github.com/activebuddy/activebuddy/internal/queue"
	"github.com/activebuddy/activebuddy/internal/telegram"
)

// fakeSender records outbound Telegram traffic.
type fakeSender struct {
	texts   []sentMessage
	htmls   []sentMessage
	buttons []sentButton
}

type sentMessage struct {
	chatID int64
	text   string
}

type sentButton struct {
	chatID int64
	text   string
	label  string
	url    string
}

func (s *fakeSender) SendText(chatID int64, text string) error {
	s.texts = append(s.texts, sentMessage{chatID, text})
	return nil
}

func (s *fakeSender) SendHTML(chatID int64, text string) error {
	s.htmls = append(s.htmls, sentMessage{chatID, text})
	return nil
}

func (s *fakeSender) SendTyping(chatID int64) error { return nil }

func (s *fakeSender) SendURLButton(chatID int64, text, label, url string) error {
	s.buttons = append(s.buttons, sentButton{chatID, text, label, url})
	return nil
}

func (s *fakeSender) FileURL(fileID string) (string, error) {
	return "https://files.example.com/" + fileID, nil
}

var _ telegram.Sender = (*fakeSender)(nil)

// fakeStore is an in-memory ProfileStore.
type fakeStore struct {
	profiles map[int64]*models.Profile
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[int64]*models.Profile)}
}

func (s *fakeStore) GetOrCreate(ctx context.Context, chatID int64) (*models.Profile, error) {
	if p, ok := s.profiles[chatID]; ok {
		return p, nil
	}
	p := &models.Profile{ChatID: chatID, Memory: models.Memory{}}
	s.profiles[chatID] = p
	return p, nil
}

func (s *fakeStore) Get(ctx context.Context, chatID int64) (*models.Profile, error) {
	if p, ok := s.profiles[chatID]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

func (s *fakeStore) SetAuthorized(ctx context.Context, chatID int64, authorized bool) error {
	p, err := s.GetOrCreate(ctx, chatID)
	if err != nil {
		return err
	}
	p.Authorized = authorized
	return nil
}

func (s *fakeStore) MergeMemory(ctx context.Context, chatID int64, updates models.Memory) error {
	p, err := s.GetOrCreate(ctx, chatID)
	if err != nil {
		return err
	}
	p.Memory = p.Memory.Merge(updates)
	return nil
}

func (s *fakeStore) ClearMemory(ctx context.Context, chatID int64) error {
	p, err := s.GetOrCreate(ctx, chatID)
	if err != nil {
		return err
	}
	p.Memory = models.Memory{}
	return nil
}

func (s *fakeStore) ReplaceHistory(ctx context.Context, chatID int64, history []models.HistoryEntry) error {
	p, err := s.GetOrCreate(ctx, chatID)
	if err != nil {
		return err
	}
	p.History = history
	return nil
}

func (s *fakeStore) SaveStravaTokens(ctx context.Context, chatID int64, tokens *models.StravaTokens) error {
	p, err := s.GetOrCreate(ctx, chatID)
	if err != nil {
		return err
	}
	p.Strava = tokens
	return nil
}

func (s *fakeStore) List(ctx context.Context) ([]*models.Profile, error) { return nil, nil }

// fakeQueue records enqueued jobs.
type fakeQueue struct {
	jobs    []*queue.Job
	failing bool
}

func (q *fakeQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if q.failing {
		return errors.New("broker down")
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (q *fakeQueue) Close() error                          { return nil }
func (q *fakeQueue) HealthCheck(ctx context.Context) error { return nil }
