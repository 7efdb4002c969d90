package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
)

// moneyPlaces is the number of decimal places every computed amount carries.
const moneyPlaces = 2

var (
	hundred             = decimal.NewFromInt(100)
	percentageTolerance = decimal.RequireFromString("0.01")
)

// Participant is one person's input to a split.
// Only the field matching the split type is read.
type Participant struct {
	UserID     string
	Amount     decimal.Decimal // EXACT
	Percentage decimal.Decimal // PERCENTAGE
	Shares     decimal.Decimal // SHARES
}

// Share is the computed amount one participant owes.
type Share struct {
	UserID string
	Amount decimal.Decimal
}

// Compute divides total among participants according to splitType.
// The returned amounts are in input order and always sum to total exactly.
//
// EQUAL, PERCENTAGE and SHARES round each share half away from zero to 2
// places; the residual cents go to the first participant whose share is
// non-zero.
func Compute(splitType models.SplitType, total decimal.Decimal, participants []Participant) ([]Share, error) {
	if len(participants) == 0 {
		return nil, errs.New(errs.Validation, "at least one participant is required")
	}
	if !total.IsPositive() {
		return nil, errs.New(errs.Validation, "amount must be greater than zero")
	}
	if !hasMoneyPrecision(total) {
		return nil, errs.Newf(errs.Validation, "amount %s has more than %d decimal places", total, moneyPlaces)
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p.UserID == "" {
			return nil, errs.New(errs.Validation, "participant user id is required")
		}
		if seen[p.UserID] {
			return nil, errs.Newf(errs.Validation, "participant %s appears more than once", p.UserID)
		}
		seen[p.UserID] = true
	}

	var (
		shares []Share
		err    error
	)
	switch splitType {
	case models.SplitEqual:
		shares = equalShares(total, participants)
	case models.SplitExact:
		shares, err = exactShares(total, participants)
	case models.SplitPercentage:
		shares, err = percentageShares(total, participants)
	case models.SplitShares:
		shares, err = weightedShares(total, participants)
	default:
		return nil, errs.Newf(errs.Validation, "invalid split type %s", splitType)
	}
	if err != nil {
		return nil, err
	}

	for _, s := range shares {
		if s.Amount.IsNegative() {
			return nil, errs.Newf(errs.Validation, "share for %s cannot be reconciled to a non-negative amount", s.UserID)
		}
	}
	if sum := Sum(shares); !sum.Equal(total) {
		return nil, errs.Newf(errs.InternalConsistency, "split amounts sum to %s, want %s", sum, total)
	}
	return shares, nil
}

// Sum adds the amounts of shares.
func Sum(shares []Share) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	return sum
}

func equalShares(total decimal.Decimal, participants []Participant) []Share {
	each := total.Div(decimal.NewFromInt(int64(len(participants)))).Round(moneyPlaces)
	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{UserID: p.UserID, Amount: each}
	}
	return reconcile(total, shares)
}

func exactShares(total decimal.Decimal, participants []Participant) ([]Share, error) {
	shares := make([]Share, len(participants))
	for i, p := range participants {
		if p.Amount.IsNegative() {
			return nil, errs.Newf(errs.Validation, "amount for %s must not be negative", p.UserID)
		}
		if !hasMoneyPrecision(p.Amount) {
			return nil, errs.Newf(errs.Validation, "amount for %s has more than %d decimal places", p.UserID, moneyPlaces)
		}
		shares[i] = Share{UserID: p.UserID, Amount: p.Amount}
	}
	if sum := Sum(shares); !sum.Equal(total) {
		return nil, errs.Newf(errs.Validation, "exact split amounts sum to %s, must equal total %s", sum, total)
	}
	return shares, nil
}

func percentageShares(total decimal.Decimal, participants []Participant) ([]Share, error) {
	sum := decimal.Zero
	for _, p := range participants {
		if p.Percentage.IsNegative() {
			return nil, errs.Newf(errs.Validation, "percentage for %s must not be negative", p.UserID)
		}
		sum = sum.Add(p.Percentage)
	}
	if sum.Sub(hundred).Abs().GreaterThan(percentageTolerance) {
		return nil, errs.Newf(errs.Validation, "total percentage must be 100, got %s", sum)
	}

	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{
			UserID: p.UserID,
			Amount: p.Percentage.Mul(total).Div(hundred).Round(moneyPlaces),
		}
	}
	return reconcile(total, shares), nil
}

func weightedShares(total decimal.Decimal, participants []Participant) ([]Share, error) {
	totalShares := decimal.Zero
	for _, p := range participants {
		if !p.Shares.IsPositive() {
			return nil, errs.Newf(errs.Validation, "shares for %s must be greater than zero", p.UserID)
		}
		totalShares = totalShares.Add(p.Shares)
	}
	if !totalShares.IsPositive() {
		return nil, errs.New(errs.Validation, "total shares must be greater than zero")
	}

	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{
			UserID: p.UserID,
			Amount: p.Shares.Mul(total).Div(totalShares).Round(moneyPlaces),
		}
	}
	return reconcile(total, shares), nil
}

// reconcile moves the difference between total and the rounded shares onto
// the first participant with a non-zero share. A negative residual larger
// than that share spills over the following non-zero shares in order, so no
// share drops below zero.
func reconcile(total decimal.Decimal, shares []Share) []Share {
	residual := total.Sub(Sum(shares))
	if residual.IsZero() {
		return shares
	}
	if residual.IsPositive() {
		i := firstNonZero(shares)
		shares[i].Amount = shares[i].Amount.Add(residual)
		return shares
	}
	for i := range shares {
		if residual.IsZero() {
			break
		}
		take := decimal.Min(shares[i].Amount, residual.Neg())
		shares[i].Amount = shares[i].Amount.Sub(take)
		residual = residual.Add(take)
	}
	return shares
}

func firstNonZero(shares []Share) int {
	for i, s := range shares {
		if !s.Amount.IsZero() {
			return i
		}
	}
	return 0
}

func hasMoneyPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(moneyPlaces))
}
