package memory

import (
	"context"
	"sort"
	"sync"

	"cogscreen-service/internal/domain"
)

// ScreeningStore is an in-memory implementation of app.ScreeningRepository.
type ScreeningStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ScreeningSession
}

func NewScreeningStore() *ScreeningStore {
	return &ScreeningStore{sessions: make(map[string]domain.ScreeningSession)}
}

func (s *ScreeningStore) Create(_ context.Context, sess domain.ScreeningSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *ScreeningStore) Get(_ context.Context, userID, sessionID string) (domain.ScreeningSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return domain.ScreeningSession{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *ScreeningStore) ListByUser(_ context.Context, userID string) ([]domain.ScreeningSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ScreeningSession, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *ScreeningStore) Latest(ctx context.Context, userID string) (domain.ScreeningSession, error) {
	list, _ := s.ListByUser(ctx, userID)
	if len(list) == 0 {
		return domain.ScreeningSession{}, domain.ErrSessionNotFound
	}
	return list[len(list)-1], nil
}
