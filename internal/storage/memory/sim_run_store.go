package memory

import (
	"context"
	"sort"
	"sync"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/storage"
)

// SimRunStore is an in-memory implementation of storage.SimRunStore.
type SimRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimRun // keyed by run_id
}

// NewSimRunStore creates a new in-memory run store.
func NewSimRunStore() *SimRunStore {
	return &SimRunStore{
		data: make(map[string]*domain.SimRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *SimRunStore) Insert(_ context.Context, r *domain.SimRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.data[r.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimRunStore) GetByID(_ context.Context, runID string) (*domain.SimRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	runCopy := *r
	return &runCopy, nil
}

// GetByBatch retrieves all runs of a batch, ordered by run_id ASC.
func (s *SimRunStore) GetByBatch(_ context.Context, batchID string) ([]*domain.SimRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimRun
	for _, r := range s.data {
		if r.BatchID == batchID {
			runCopy := *r
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

// GetBySymbol retrieves all runs for a symbol, ordered by created_at, run_id.
func (s *SimRunStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.SimRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimRun
	for _, r := range s.data {
		if r.Symbol == symbol {
			runCopy := *r
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

var _ storage.SimRunStore = (*SimRunStore)(nil)
