package memory

import (
	"context"
	"errors"
	"testing"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/storage"
)

func TestSimRunStore_InsertAndGet(t *testing.T) {
	store := NewSimRunStore()
	ctx := context.Background()

	run := &domain.SimRun{RunID: "r1", Symbol: "BTCUSDT", CreatedAt: 100, FinalCapital: 1050}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.FinalCapital != 1050 {
		t.Errorf("Expected FinalCapital 1050, got %v", got.FinalCapital)
	}

	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Insert(ctx, &domain.SimRun{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSimRunStore_GetByBatchAndSymbol(t *testing.T) {
	store := NewSimRunStore()
	ctx := context.Background()

	runs := []*domain.SimRun{
		{RunID: "c", BatchID: "b1", Symbol: "BTCUSDT", CreatedAt: 300},
		{RunID: "a", BatchID: "b1", Symbol: "BTCUSDT", CreatedAt: 300},
		{RunID: "b", BatchID: "b2", Symbol: "BTCUSDT", CreatedAt: 100},
		{RunID: "d", BatchID: "b1", Symbol: "ETHUSDT", CreatedAt: 200},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.RunID, err)
		}
	}

	batch, err := store.GetByBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByBatch failed: %v", err)
	}
	if len(batch) != 3 || batch[0].RunID != "a" || batch[2].RunID != "d" {
		t.Errorf("Unexpected batch order: %v", runIDs(batch))
	}

	btc, err := store.GetBySymbol(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if got := runIDs(btc); len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Errorf("Expected [b a c], got %v", got)
	}
}

func runIDs(runs []*domain.SimRun) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.RunID
	}
	return ids
}

func TestWalletStore(t *testing.T) {
	store := NewWalletStore(250)
	ctx := context.Background()

	balance, err := store.Balance(ctx)
	if err != nil || balance != 250 {
		t.Fatalf("Balance = (%v, %v), want 250", balance, err)
	}
	if err := store.SetBalance(ctx, 400); err != nil {
		t.Fatalf("SetBalance failed: %v", err)
	}
	if balance, _ := store.Balance(ctx); balance != 400 {
		t.Errorf("Balance = %v, want 400", balance)
	}
	if err := store.SetBalance(ctx, -1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
