package storage

import (
	"context"
	"errors"

	"spendsmart/internal/core"
)

// ErrMalformedIdentity marks a persisted identity record that cannot be
// decoded. Callers degrade to the unauthenticated state instead of failing
// startup.
var ErrMalformedIdentity = errors.New("malformed identity record")

// Ports for the persistence substrate. Expense records are partitioned per
// identity: a write under one user id can never touch another user's
// records.
type (
	// IdentityStore persists the single identity record of the device.
	IdentityStore interface {
		// SaveIdentity overwrites the stored identity record.
		SaveIdentity(ctx context.Context, id core.Identity) error
		// LoadIdentity returns the stored identity, or (nil, nil) when
		// absent. A present but undecodable record yields
		// ErrMalformedIdentity.
		LoadIdentity(ctx context.Context) (*core.Identity, error)
		// ClearIdentity removes the stored identity record; idempotent.
		ClearIdentity(ctx context.Context) error
	}

	// ExpenseStore persists one expense partition per user id.
	ExpenseStore interface {
		// ListExpenses returns the user's records in insertion order.
		// A missing partition is an empty list, not an error.
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
		// ReplaceExpenses overwrites the user's partition with records,
		// preserving their order as the new insertion order.
		ReplaceExpenses(ctx context.Context, userID string, records []core.Expense) error
	}
)
