// Package models defines the core domain models for splitledger.
//
// # Ledger Models
//
//   - Expense: an amount paid by one user, split among participants
//   - Split: one participant's owed share of an expense
//   - Settlement: a recorded payment between two users
//   - Activity: an append-only record of a ledger mutation
//
// # Supporting Models
//
//   - User: an identity known to the ledger (issued elsewhere)
//   - Group: a set of members sharing expenses
//   - Tag, Receipt: expense annotations removed with their expense
//
// # Design Principles
//
// 1. **Exact money**: every amount is a decimal.Decimal, never a float
// 2. **Closed enums**: split types, statuses and methods are typed constants,
//    parsed once at the boundary
// 3. **Explicit scope**: personal and group records are distinguished by the
//    Scope sum type instead of an empty group id
// 4. **Avoid circular references**: use ID strings instead of pointers
package models
