package quota

import (
	"context"
	"sync"

	"github.com/infomap/infomap/internal/model"
)

type dayKey struct {
	userID int64
	date   string
}

// MemoryStore is an in-process Store for tests and local tooling.
type MemoryStore struct {
	mu      sync.Mutex
	counts  map[dayKey]int
	history []model.QueryHistory

	// Fail, when set, is returned by every write.
	Fail error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[dayKey]int)}
}

// GetDailyCount implements Store.
func (s *MemoryStore) GetDailyCount(_ context.Context, userID int64, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[dayKey{userID, date}], nil
}

// IncrementDailyCount implements Store.
func (s *MemoryStore) IncrementDailyCount(_ context.Context, userID int64, date string, max int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.increment(dayKey{userID, date}, max)
}

// IncrementDailyCountWithHistory implements Store.
func (s *MemoryStore) IncrementDailyCountWithHistory(_ context.Context, userID int64, date string, max int, h *model.QueryHistory) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, err := s.increment(dayKey{userID, date}, max)
	if err != nil {
		return 0, err
	}
	s.history = append(s.history, *h)
	return count, nil
}

// increment must be called with mu held.
func (s *MemoryStore) increment(k dayKey, max int) (int, error) {
	if s.Fail != nil {
		return 0, s.Fail
	}
	if s.counts[k] >= max {
		return 0, ErrExhausted
	}
	s.counts[k]++
	return s.counts[k], nil
}

// History returns a copy of the recorded history.
func (s *MemoryStore) History() []model.QueryHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.QueryHistory(nil), s.history...)
}
