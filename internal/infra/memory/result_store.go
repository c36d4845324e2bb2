package memory

import (
	"context"
	"sync"

	"uniraid-battle-service/internal/domain"
)

// ResultStore keeps battle results in memory.
type ResultStore struct {
	mu      sync.Mutex
	results []domain.PlayerResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) RecordResults(_ context.Context, results []domain.PlayerResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results...)
	return nil
}

// Results returns a copy of everything recorded so far.
func (s *ResultStore) Results() []domain.PlayerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PlayerResult(nil), s.results...)
}
