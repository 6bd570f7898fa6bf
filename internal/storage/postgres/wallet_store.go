package postgres

import (
	"context"
	"fmt"
	"time"

	"ladder-lab/internal/storage"
)

// WalletStore implements storage.WalletStore using a single-row wallet table.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Balance returns the stored balance, or 0 when none has been set.
func (s *WalletStore) Balance(ctx context.Context) (float64, error) {
	var balance float64
	start := time.Now()
	err := s.pool.QueryRow(ctx, `SELECT balance FROM wallet WHERE id = 1`).Scan(&balance)
	s.pool.observe("wallet_get", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get wallet balance: %w", err)
	}
	return balance, nil
}

// SetBalance replaces the stored balance.
func (s *WalletStore) SetBalance(ctx context.Context, amount float64) error {
	if amount < 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO wallet (id, balance, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	`
	start := time.Now()
	_, err := s.pool.Exec(ctx, query, amount)
	s.pool.observe("wallet_set", start, err)
	if err != nil {
		return fmt.Errorf("set wallet balance: %w", err)
	}
	return nil
}
