// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// ExpenseFilter selects expenses a user takes part in.
type ExpenseFilter struct {
	// UserID matches expenses paid by the user or holding one of their splits.
	UserID string

	// GroupID limits the result to one group when set.
	GroupID string
}

// SettlementFilter selects settlements for history and pending views.
type SettlementFilter struct {
	// UserID matches settlements paid by or to the user when set.
	UserID string

	// GroupID limits the result to one group when set.
	GroupID string

	// CounterpartyID, with UserID, limits the result to one pair.
	CounterpartyID string

	Status models.SettlementStatus
	Method models.SettlementMethod

	// From and To bound CreatedAt, inclusive, when non-zero.
	From time.Time
	To   time.Time

	// Offset and Limit page the result; Limit <= 0 means no limit.
	Offset int
	Limit  int
}

// SettlementPage is one page of settlements with totals over the full filter.
type SettlementPage struct {
	Settlements []*models.Settlement
	Total       int
	TotalAmount decimal.Decimal
}

// SplitPayment applies Amount of a completed settlement to one split.
type SplitPayment struct {
	SplitID string
	Amount  decimal.Decimal
}

// ActivityFilter selects entries of the activity log.
type ActivityFilter struct {
	// UserID matches entries whose actor is the user when set.
	UserID  string
	GroupID string
	Limit   int
}

// Reader defines read operations available both outside and inside a transaction.
type Reader interface {
	// GetExpense retrieves an expense with its splits and tags.
	// Returns an errs.NotFound error if the expense does not exist.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpenses retrieves every expense matching filter, with all splits.
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*models.Expense, error)

	// ListGroupExpenses retrieves every expense of a group, with all splits.
	ListGroupExpenses(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListPairExpenses retrieves expenses paid by one of the two users that
	// hold a split of the other, optionally limited to a group.
	ListPairExpenses(ctx context.Context, userA, userB, groupID string) ([]*models.Expense, error)

	// GetSettlement retrieves a settlement by ID.
	// Returns an errs.NotFound error if the settlement does not exist.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlements retrieves a page of settlements, newest first.
	ListSettlements(ctx context.Context, filter SettlementFilter) (*SettlementPage, error)

	// MissingTag returns the first of tagIDs that does not exist, or "".
	MissingTag(ctx context.Context, tagIDs []string) (string, error)

	// ListActivity retrieves activity entries, newest first.
	ListActivity(ctx context.Context, filter ActivityFilter) ([]*models.Activity, error)
}

// Tx is a unit of work. Every write made through a Tx is committed or
// rolled back together.
type Tx interface {
	Reader

	// CreateExpense inserts the expense row, its splits and its tag links.
	// Missing IDs and timestamps are generated.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// UpdateExpense rewrites the expense row and replaces all of its splits
	// and tag links with the ones in expense.
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense removes the expense with its splits, tag links and receipts.
	DeleteExpense(ctx context.Context, expenseID string) error

	// CreateSettlement inserts a settlement.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// UpdateSettlementStatus moves a settlement to status, recording settledAt.
	UpdateSettlementStatus(ctx context.Context, settlementID string, status models.SettlementStatus, settledAt *time.Time) error

	// ApplySplitPayments adds each payment to its split's settled amount.
	// Splits paid in full are marked settled at settledAt. A payment larger
	// than what remains on its split is an errs.Conflict.
	ApplySplitPayments(ctx context.Context, payments []SplitPayment, settledAt time.Time) error

	// AppendActivity adds an entry to the activity log.
	AppendActivity(ctx context.Context, activity *models.Activity) error
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger logic.
type Store interface {
	Reader

	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}
