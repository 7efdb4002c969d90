package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is an amount paid by one user and split among participants.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Scope is Personal{} for a personal expense or InGroup for a group expense.
	Scope Scope

	// PaidByID is the user who paid and to whom every split is owed.
	PaidByID string

	// Description is the human-readable label (e.g., "Dinner").
	Description string

	// Amount is the positive total in the expense currency, at most 2 decimal places.
	Amount decimal.Decimal

	// Currency is the ISO 4217 code shared by every amount of the expense.
	Currency string

	// SplitType is the strategy the splits were computed with.
	SplitType SplitType

	// Date is when the expense happened.
	Date time.Time

	// Notes is an optional free-form note.
	Notes string

	// Splits are the per-participant shares. Their amounts sum to Amount.
	Splits []Split

	// TagIDs are the tags attached to the expense.
	TagIDs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPayments reports whether any split has been fully or partly paid.
func (e *Expense) HasPayments() bool {
	for i := range e.Splits {
		if e.Splits[i].Touched() {
			return true
		}
	}
	return false
}

// SplitFor returns the split owed by userID, if any.
func (e *Expense) SplitFor(userID string) (*Split, bool) {
	for i := range e.Splits {
		if e.Splits[i].UserID == userID {
			return &e.Splits[i], true
		}
	}
	return nil, false
}

// HasParticipant reports whether userID paid for or owes part of the expense.
func (e *Expense) HasParticipant(userID string) bool {
	if e.PaidByID == userID {
		return true
	}
	_, ok := e.SplitFor(userID)
	return ok
}

// Split is one participant's owed share of an expense.
type Split struct {
	ID        string
	ExpenseID string

	// UserID owes Amount to the expense payer.
	UserID string

	Amount decimal.Decimal

	// Percentage and Shares keep the caller's input for audit only.
	Percentage decimal.NullDecimal
	Shares     decimal.NullDecimal

	// SettledAmount is the part of Amount already paid through completed
	// settlements. IsSettled is set once it reaches Amount.
	SettledAmount decimal.Decimal
	IsSettled     bool
	SettledAt     *time.Time
}

// Remaining returns the part of the split still owed.
func (s *Split) Remaining() decimal.Decimal {
	if s.IsSettled {
		return decimal.Zero
	}
	return s.Amount.Sub(s.SettledAmount)
}

// Touched reports whether any payment has been applied to the split.
func (s *Split) Touched() bool {
	return s.IsSettled || s.SettledAmount.IsPositive()
}

// Tag is a label that can be attached to expenses.
type Tag struct {
	ID   string
	Name string
}

// Receipt is an uploaded receipt reference attached to an expense.
type Receipt struct {
	ID        string
	ExpenseID string
	URL       string
	CreatedAt time.Time
}
