package models

import "time"

// Activity is one append-only audit record describing a ledger mutation.
type Activity struct {
	ID      string
	ActorID string
	Scope   Scope
	Type    ActivityType

	// ExpenseID or SettlementID reference the mutated record, when any.
	// They are not foreign keys: the log outlives deleted expenses.
	ExpenseID    string
	SettlementID string

	// Action is a short human-readable summary.
	Action string

	// Metadata holds structured details of the mutation.
	Metadata map[string]any

	CreatedAt time.Time
}
