package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"spendsmart/internal/core"
	"spendsmart/internal/kv"
)

const (
	identityKey   = "identity"
	expensePrefix = "expenses/"
)

// KVRepository persists identities and expense partitions as JSON values in
// a file-backed key-value store: the identity under one fixed key, each
// user's expenses as one array under "expenses/<userID>".
type KVRepository struct {
	store *kv.Store
}

var (
	_ IdentityStore = (*KVRepository)(nil)
	_ ExpenseStore  = (*KVRepository)(nil)
)

func NewKVRepository(store *kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

// SaveIdentity implements IdentityStore.
func (r *KVRepository) SaveIdentity(_ context.Context, id core.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := r.store.Set(identityKey, raw); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

// LoadIdentity implements IdentityStore.
func (r *KVRepository) LoadIdentity(_ context.Context) (*core.Identity, error) {
	raw, ok := r.store.Get(identityKey)
	if !ok {
		return nil, nil
	}
	var id core.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}
	if id.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedIdentity)
	}
	return &id, nil
}

// ClearIdentity implements IdentityStore.
func (r *KVRepository) ClearIdentity(_ context.Context) error {
	if err := r.store.Delete(identityKey); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

// ListExpenses implements ExpenseStore.
func (r *KVRepository) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	raw, ok := r.store.Get(expensePrefix + userID)
	if !ok {
		return nil, nil
	}
	var records []core.Expense
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode expense partition for %s: %w", userID, err)
	}
	return records, nil
}

// ReplaceExpenses implements ExpenseStore.
func (r *KVRepository) ReplaceExpenses(_ context.Context, userID string, records []core.Expense) error {
	if records == nil {
		records = []core.Expense{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode expense partition: %w", err)
	}
	if err := r.store.Set(expensePrefix+userID, raw); err != nil {
		return fmt.Errorf("persist expense partition for %s: %w", userID, err)
	}
	return nil
}
