package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// Relationship is one user's balance against a single counterparty.
type Relationship struct {
	CounterpartyID string
	OwedToMe       decimal.Decimal
	IOwe           decimal.Decimal
	NetBalance     decimal.Decimal // Positive = counterparty owes me, negative = I owe them
}

// Summary aggregates a user's unsettled balances.
type Summary struct {
	TotalOwed         decimal.Decimal // Owed to the user by others
	TotalOwing        decimal.Decimal // Owed by the user to others
	NetBalance        decimal.Decimal
	Relationships     []Relationship
	RecentSettlements []*models.Settlement
}

// NetBalance is a participant's net position in a group of balances.
type NetBalance struct {
	Participant string
	NetBalance  decimal.Decimal // Positive = owed money, negative = owes money
}

// UserBalances computes userID's pairwise balances from expenses.
//
// Algorithm:
//   - Expense paid by userID: the remaining part of every other split is owed to userID
//   - Expense paid by someone else: the remaining part of userID's split is owed to the payer
//   - net = owedToMe - iOwe per counterparty
//
// Settlements are not netted here; they take effect by paying down splits.
// Relationships are sorted by counterparty id.
func UserBalances(userID string, expenses []*models.Expense) *Summary {
	buckets := make(map[string]*Relationship)
	bucket := func(counterparty string) *Relationship {
		if r, ok := buckets[counterparty]; ok {
			return r
		}
		r := &Relationship{CounterpartyID: counterparty}
		buckets[counterparty] = r
		return r
	}

	summary := &Summary{}
	for _, expense := range expenses {
		if expense.PaidByID == userID {
			for i := range expense.Splits {
				split := &expense.Splits[i]
				remaining := split.Remaining()
				if split.UserID == userID || remaining.IsZero() {
					continue
				}
				r := bucket(split.UserID)
				r.OwedToMe = r.OwedToMe.Add(remaining)
				summary.TotalOwed = summary.TotalOwed.Add(remaining)
			}
			continue
		}

		split, ok := expense.SplitFor(userID)
		if !ok || split.Remaining().IsZero() {
			continue
		}
		r := bucket(expense.PaidByID)
		r.IOwe = r.IOwe.Add(split.Remaining())
		summary.TotalOwing = summary.TotalOwing.Add(split.Remaining())
	}

	summary.Relationships = make([]Relationship, 0, len(buckets))
	for _, r := range buckets {
		r.NetBalance = r.OwedToMe.Sub(r.IOwe)
		summary.Relationships = append(summary.Relationships, *r)
	}
	sort.Slice(summary.Relationships, func(i, j int) bool {
		return summary.Relationships[i].CounterpartyID < summary.Relationships[j].CounterpartyID
	})
	summary.NetBalance = summary.TotalOwed.Sub(summary.TotalOwing)
	return summary
}

// OutstandingBalance returns how much debtorID still owes creditorID across
// the remaining parts of splits, netting debts in both directions.
// A result <= 0 means nothing is owed.
func OutstandingBalance(debtorID, creditorID string, expenses []*models.Expense) decimal.Decimal {
	owed := decimal.Zero
	for _, expense := range expenses {
		switch expense.PaidByID {
		case creditorID:
			if split, ok := expense.SplitFor(debtorID); ok {
				owed = owed.Add(split.Remaining())
			}
		case debtorID:
			if split, ok := expense.SplitFor(creditorID); ok {
				owed = owed.Sub(split.Remaining())
			}
		}
	}
	return owed
}

// NetBalances computes every participant's net position over the remaining
// parts of splits. Zero balances are omitted; the result is sorted by
// participant id and always sums to zero.
func NetBalances(expenses []*models.Expense) []NetBalance {
	nets := make(map[string]decimal.Decimal)
	for _, expense := range expenses {
		for i := range expense.Splits {
			split := &expense.Splits[i]
			remaining := split.Remaining()
			if remaining.IsZero() || split.UserID == expense.PaidByID {
				continue
			}
			nets[expense.PaidByID] = nets[expense.PaidByID].Add(remaining)
			nets[split.UserID] = nets[split.UserID].Sub(remaining)
		}
	}

	balances := make([]NetBalance, 0, len(nets))
	for participant, net := range nets {
		if net.IsZero() {
			continue
		}
		balances = append(balances, NetBalance{Participant: participant, NetBalance: net})
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Participant < balances[j].Participant
	})
	return balances
}
