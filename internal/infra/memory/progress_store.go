package memory

import (
	"context"
	"sync"

	"cogscreen-service/internal/domain"
)

// ProgressStore keeps in-flight assessment histories in process memory.
type ProgressStore struct {
	mu      sync.RWMutex
	history map[string][]domain.AnsweredItem
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{history: make(map[string][]domain.AnsweredItem)}
}

func (s *ProgressStore) Load(_ context.Context, userID string) ([]domain.AnsweredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AnsweredItem(nil), s.history[userID]...), nil
}

func (s *ProgressStore) Save(_ context.Context, userID string, history []domain.AnsweredItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(history) == 0 {
		delete(s.history, userID)
		return nil
	}
	s.history[userID] = append([]domain.AnsweredItem(nil), history...)
	return nil
}

func (s *ProgressStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, userID)
	return nil
}
