package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/errs"
)

// Transfer is one payment that settles part of the balances.
type Transfer struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

type party struct {
	id        string
	remaining decimal.Decimal
}

// Optimize simplifies balances into the fewest transfers that zero them out.
//
// Algorithm (greedy minimum cash flow):
//   - creditors (net > 0) and debtors (net < 0) are each sorted by amount
//     descending, ties broken by participant id ascending
//   - the largest remaining creditor is matched with the largest remaining
//     debtor for min(credit, debt); parties reaching zero are skipped
//
// At most n-1 transfers are produced for n non-zero participants. Balances
// that do not sum to zero are an internal consistency error: the caller must
// not attempt a partial settlement.
func Optimize(balances []NetBalance) ([]Transfer, error) {
	var creditors, debtors []party
	seen := make(map[string]bool, len(balances))
	total := decimal.Zero
	for _, b := range balances {
		if seen[b.Participant] {
			return nil, errs.Newf(errs.Validation, "participant %s appears more than once", b.Participant)
		}
		seen[b.Participant] = true
		total = total.Add(b.NetBalance)

		switch {
		case b.NetBalance.IsPositive():
			creditors = append(creditors, party{id: b.Participant, remaining: b.NetBalance})
		case b.NetBalance.IsNegative():
			debtors = append(debtors, party{id: b.Participant, remaining: b.NetBalance.Neg()})
		}
	}
	if !total.IsZero() {
		return nil, errs.Newf(errs.InternalConsistency, "balances do not conserve money: sum is %s", total)
	}

	sortParties(creditors)
	sortParties(debtors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		creditor, debtor := &creditors[i], &debtors[j]

		amount := decimal.Min(creditor.remaining, debtor.remaining)
		transfers = append(transfers, Transfer{
			From:   debtor.id,
			To:     creditor.id,
			Amount: amount,
		})

		creditor.remaining = creditor.remaining.Sub(amount)
		debtor.remaining = debtor.remaining.Sub(amount)

		if creditor.remaining.IsZero() {
			i++
		}
		if debtor.remaining.IsZero() {
			j++
		}
	}
	return transfers, nil
}

func sortParties(parties []party) {
	sort.Slice(parties, func(a, b int) bool {
		if c := parties[a].remaining.Cmp(parties[b].remaining); c != 0 {
			return c > 0
		}
		return parties[a].id < parties[b].id
	})
}
