package models

import "time"

// User is an identity known to the ledger.
//
// Accounts and credentials are issued by an external identity provider;
// the ledger only stores the id and a display name for activity summaries.
type User struct {
	// ID is the unique identifier for the user.
	ID string

	// Name is the display name of the user.
	Name string

	// Email is the user's email address (unique).
	Email string

	CreatedAt time.Time
}

// Actor is the authenticated user performing a request.
type Actor struct {
	UserID string
	Name   string
}
