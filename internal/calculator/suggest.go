package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// SuggestionType says whether the user should collect or pay.
type SuggestionType string

const (
	SuggestCollect SuggestionType = "COLLECT"
	SuggestPay     SuggestionType = "PAY"
)

var (
	priorityWeight = decimal.RequireFromString("0.1")
	cashLimit      = decimal.NewFromInt(100)
	upiLimit       = decimal.NewFromInt(1000)
)

// Suggestion recommends settling one relationship.
type Suggestion struct {
	CounterpartyID  string
	Amount          decimal.Decimal
	Type            SuggestionType
	Priority        decimal.Decimal
	SuggestedMethod models.SettlementMethod
}

// Suggest turns relationships whose absolute net balance exceeds threshold
// into settlement suggestions, highest priority first.
func Suggest(relationships []Relationship, threshold decimal.Decimal) []Suggestion {
	var suggestions []Suggestion
	for _, r := range relationships {
		amount := r.NetBalance.Abs()
		if !amount.GreaterThan(threshold) {
			continue
		}
		typ := SuggestPay
		if r.NetBalance.IsPositive() {
			typ = SuggestCollect
		}
		suggestions = append(suggestions, Suggestion{
			CounterpartyID:  r.CounterpartyID,
			Amount:          amount,
			Type:            typ,
			Priority:        amount.Mul(priorityWeight),
			SuggestedMethod: SuggestMethod(amount),
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority.GreaterThan(suggestions[j].Priority)
	})
	return suggestions
}

// SuggestMethod picks a payment method by amount.
func SuggestMethod(amount decimal.Decimal) models.SettlementMethod {
	switch {
	case amount.LessThan(cashLimit):
		return models.MethodCash
	case amount.LessThan(upiLimit):
		return models.MethodUPI
	default:
		return models.MethodBankTransfer
	}
}
