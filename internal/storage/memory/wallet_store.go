package memory

import (
	"context"
	"sync"

	"ladder-lab/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu      sync.RWMutex
	balance float64
}

// NewWalletStore creates a wallet holding balance.
func NewWalletStore(balance float64) *WalletStore {
	return &WalletStore{balance: balance}
}

// Balance returns the current balance.
func (s *WalletStore) Balance(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, nil
}

// SetBalance replaces the balance.
func (s *WalletStore) SetBalance(_ context.Context, amount float64) error {
	if amount < 0 {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = amount
	return nil
}

var _ storage.WalletStore = (*WalletStore)(nil)
