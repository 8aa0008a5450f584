package expense

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
	"spendsmart/internal/storage"
)

// ErrNoIdentity is returned by mutations attempted while nobody is logged in.
var ErrNoIdentity = errors.New("no active identity")

// Store holds the active user's expenses in memory and writes every mutation
// through to the persistent partition. The in-memory view is what handlers
// render; Reload rebuilds it from storage for the active user.
type Store struct {
	mu     sync.RWMutex
	repo   storage.ExpenseStore
	logger *log.Logger
	delay  time.Duration

	userID string
	view   []core.Expense
}

func NewStore(repo storage.ExpenseStore, delay time.Duration, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{
		repo:   repo,
		logger: logger.WithComponent(log.ComponentExpense),
		delay:  delay,
	}
}

// HandleIdentityChange follows the session: a login loads that user's
// partition, a logout empties the view. Wire it via session.Subscribe.
func (s *Store) HandleIdentityChange(ctx context.Context, id *core.Identity) {
	s.mu.Lock()
	if id == nil {
		s.userID = ""
		s.view = nil
		s.mu.Unlock()
		return
	}
	s.userID = id.ID
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load expenses for user",
			log.FieldOperation, log.OpLoad,
			log.FieldUserID, id.ID,
			log.FieldError, err.Error())
	}
}

// Reload rebuilds the view from the active user's partition, newest date
// first. Equal dates keep their stored order. Without an active identity the
// view is simply empty.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		s.view = nil
		return nil
	}

	records, err := s.repo.ListExpenses(ctx, s.userID)
	if err != nil {
		return err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	s.view = records

	s.logger.DebugContext(ctx, "Expenses loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldUserID, s.userID,
		"count", len(records))
	return nil
}

// Add assigns the draft a fresh id and the active user and slots it into the
// view. The store persists whatever it is handed; field validation is the
// submission path's job.
func (s *Store) Add(ctx context.Context, draft core.ExpenseDraft) (core.Expense, error) {
	if err := sleep(ctx, s.delay); err != nil {
		return core.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return core.Expense{}, ErrNoIdentity
	}

	e := core.Expense{
		ID:          core.NewExpenseID(),
		UserID:      s.userID,
		Amount:      draft.Amount,
		Category:    draft.Category,
		Date:        draft.Date,
		Description: draft.Description,
	}

	// Prepend, then restore date order. The stable sort keeps the new entry
	// ahead of older same-day entries, matching what a reload would produce.
	next := make([]core.Expense, 0, len(s.view)+1)
	next = append(next, e)
	next = append(next, s.view...)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].Date.After(next[j].Date)
	})
	if err := s.repo.ReplaceExpenses(ctx, s.userID, next); err != nil {
		return core.Expense{}, err
	}
	s.view = next

	s.logger.InfoContext(ctx, "Expense added",
		log.FieldOperation, log.OpAdd,
		log.FieldUserID, s.userID,
		log.FieldExpenseID, e.ID,
		log.FieldCategory, string(e.Category),
		log.FieldAmount, e.Amount.Cents)
	return e, nil
}

// Update applies the patch to the expense with the given id. An unknown id
// leaves the store unchanged and is not an error.
func (s *Store) Update(ctx context.Context, id string, patch core.ExpensePatch) error {
	if err := sleep(ctx, s.delay); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return ErrNoIdentity
	}

	idx := -1
	for i := range s.view {
		if s.view[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	next := make([]core.Expense, len(s.view))
	copy(next, s.view)
	next[idx].Apply(patch)
	if err := s.repo.ReplaceExpenses(ctx, s.userID, next); err != nil {
		return err
	}
	s.view = next

	s.logger.InfoContext(ctx, "Expense updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, s.userID,
		log.FieldExpenseID, id)
	return nil
}

// Delete removes the expense with the given id. Deleting an id that is
// already gone succeeds without effect.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := sleep(ctx, s.delay); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return ErrNoIdentity
	}

	next := make([]core.Expense, 0, len(s.view))
	for _, e := range s.view {
		if e.ID != id {
			next = append(next, e)
		}
	}
	if len(next) == len(s.view) {
		return nil
	}
	if err := s.repo.ReplaceExpenses(ctx, s.userID, next); err != nil {
		return err
	}
	s.view = next

	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, s.userID,
		log.FieldExpenseID, id)
	return nil
}

// View returns a copy of the current expense list, newest first.
func (s *Store) View() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Expense, len(s.view))
	copy(out, s.view)
	return out
}

// Get returns the expense with the given id from the view.
func (s *Store) Get(id string) (core.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.view {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

// UserID returns the id of the user the view belongs to, or "".
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
