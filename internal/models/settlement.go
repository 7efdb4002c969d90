package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement is a recorded payment between two users to clear debts.
// It is an acknowledgement, not a funds transfer.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// PaidByID is the user who paid (debtor settling up).
	PaidByID string

	// PaidToID is the user who received payment (creditor being paid).
	PaidToID string

	// Scope limits which splits the settlement clears.
	Scope Scope

	// Amount is the positive payment amount.
	Amount decimal.Decimal

	Method SettlementMethod
	Status SettlementStatus

	// Note is an optional description for the settlement.
	Note string

	// CreatedAt is when the settlement was recorded.
	CreatedAt time.Time

	// SettledAt is set when the settlement reaches COMPLETED.
	SettledAt *time.Time
}

// Involves reports whether userID is the payer or the payee.
func (s *Settlement) Involves(userID string) bool {
	return s.PaidByID == userID || s.PaidToID == userID
}
