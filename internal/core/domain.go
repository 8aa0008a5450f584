package core

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Housing       Category = "Housing"
	Entertainment Category = "Entertainment"
	Shopping      Category = "Shopping"
	Utilities     Category = "Utilities"
	Health        Category = "Health"
	Other         Category = "Other"
)

type (
	// Category is one of the fixed set above, or any free string a caller
	// chooses to use instead.
	Category string

	// Identity is the single authenticated user record active in a session.
	Identity struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// Expense is one spending entry owned by an identity.
	Expense struct {
		ID          string   `json:"id"`
		UserID      string   `json:"userId"`
		Amount      Money    `json:"amount"`
		Category    Category `json:"category"`
		Date        Date     `json:"date"`
		Description string   `json:"description"`
	}

	// ExpenseDraft carries the caller-supplied fields of a new expense;
	// the store assigns ID and UserID.
	ExpenseDraft struct {
		Amount      Money    `json:"amount"`
		Category    Category `json:"category"`
		Date        Date     `json:"date"`
		Description string   `json:"description"`
	}

	// ExpensePatch is a partial overwrite for an edit. Nil fields are
	// preserved; ID and UserID are immutable and have no patch field.
	ExpensePatch struct {
		Amount      *Money
		Category    *Category
		Date        *Date
		Description *string
	}
)

var (
	ErrEmptyEmail       = errors.New("empty email")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
)

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return []Category{Food, Transport, Housing, Entertainment, Shopping, Utilities, Health, Other}
}

// Known reports whether c belongs to the fixed category set.
func (c Category) Known() bool {
	switch c {
	case Food, Transport, Housing, Entertainment, Shopping, Utilities, Health, Other:
		return true
	default:
		return false
	}
}

var categoryColors = map[Category]string{
	Food:          "#ef4444",
	Transport:     "#f97316",
	Housing:       "#3b82f6",
	Entertainment: "#8b5cf6",
	Shopping:      "#ec4899",
	Utilities:     "#eab308",
	Health:        "#10b981",
	Other:         "#64748b",
}

// Color returns the chart color for the category. Free-string categories
// share the fallback slate.
func (c Category) Color() string {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return "#64748b"
}

// NewIdentity builds an identity from the given email and name. The ID is a
// deterministic encoding of the email: stable per email, not secret.
func NewIdentity(email, name string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Identity{}, ErrEmptyEmail
	}
	return Identity{
		ID:    IdentityID(email),
		Name:  strings.TrimSpace(name),
		Email: email,
	}, nil
}

// IdentityID derives the stable identity id for an email.
func IdentityID(email string) string {
	return base64.StdEncoding.EncodeToString([]byte(email))
}

// NewExpenseID returns a fresh opaque expense id.
func NewExpenseID() string {
	return uuid.NewString()
}

// Apply merges the non-nil patch fields into the expense.
func (e *Expense) Apply(p ExpensePatch) {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
}

// Validate enforces form-layer rules on a draft. The store itself persists
// whatever it is handed; only the submission path calls this.
func (d ExpenseDraft) Validate() error {
	if d.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if d.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrEmptyDescription
	}
	if len(d.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}
