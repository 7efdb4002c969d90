package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func people(ids ...string) []Participant {
	ps := make([]Participant, len(ids))
	for i, id := range ids {
		ps[i] = Participant{UserID: id}
	}
	return ps
}

func amounts(shares []Share) []string {
	out := make([]string, len(shares))
	for i, s := range shares {
		out[i] = s.Amount.StringFixed(2)
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		splitType    models.SplitType
		total        string
		participants []Participant
		want         []string
		wantKind     errs.Kind
	}{
		{
			name:         "equal split assigns remainder to first participant",
			splitType:    models.SplitEqual,
			total:        "100",
			participants: people("Alice", "Bob", "Charlie"),
			want:         []string{"33.34", "33.33", "33.33"},
		},
		{
			name:         "equal split rounding up takes the excess cent from the first participant",
			splitType:    models.SplitEqual,
			total:        "200",
			participants: people("Alice", "Bob", "Charlie"),
			want:         []string{"66.66", "66.67", "66.67"},
		},
		{
			name:         "equal split spills a large negative residual over later shares",
			splitType:    models.SplitEqual,
			total:        "0.05",
			participants: people("A", "B", "C", "D", "E", "F", "G"),
			want:         []string{"0.00", "0.00", "0.01", "0.01", "0.01", "0.01", "0.01"},
		},
		{
			name:         "equal split of divisible amount",
			splitType:    models.SplitEqual,
			total:        "90",
			participants: people("Alice", "Bob", "Charlie"),
			want:         []string{"30.00", "30.00", "30.00"},
		},
		{
			name:      "percentage split",
			splitType: models.SplitPercentage,
			total:     "90",
			participants: []Participant{
				{UserID: "Alice", Percentage: dec("50")},
				{UserID: "Bob", Percentage: dec("30")},
				{UserID: "Charlie", Percentage: dec("20")},
			},
			want: []string{"45.00", "27.00", "18.00"},
		},
		{
			name:      "percentage split reconciles rounding",
			splitType: models.SplitPercentage,
			total:     "10",
			participants: []Participant{
				{UserID: "Alice", Percentage: dec("33.33")},
				{UserID: "Bob", Percentage: dec("33.33")},
				{UserID: "Charlie", Percentage: dec("33.34")},
			},
			want: []string{"3.34", "3.33", "3.33"},
		},
		{
			name:      "percentage within tolerance is reconciled",
			splitType: models.SplitPercentage,
			total:     "100",
			participants: []Participant{
				{UserID: "Alice", Percentage: dec("50")},
				{UserID: "Bob", Percentage: dec("49.99")},
			},
			want: []string{"50.01", "49.99"},
		},
		{
			name:      "percentage shares round half away from zero",
			splitType: models.SplitPercentage,
			total:     "10",
			participants: []Participant{
				{UserID: "Alice", Percentage: dec("33.33")},
				{UserID: "Bob", Percentage: dec("66.67")},
			},
			want: []string{"3.33", "6.67"},
		},
		{
			name:      "percentages summing to 99.5 are rejected",
			splitType: models.SplitPercentage,
			total:     "90",
			participants: []Participant{
				{UserID: "Alice", Percentage: dec("50")},
				{UserID: "Bob", Percentage: dec("29.5")},
				{UserID: "Charlie", Percentage: dec("20")},
			},
			wantKind: errs.Validation,
		},
		{
			name:      "shares split",
			splitType: models.SplitShares,
			total:     "80",
			participants: []Participant{
				{UserID: "Alice", Shares: dec("1")},
				{UserID: "Bob", Shares: dec("1")},
				{UserID: "Charlie", Shares: dec("2")},
			},
			want: []string{"20.00", "20.00", "40.00"},
		},
		{
			name:      "shares split reconciles rounding",
			splitType: models.SplitShares,
			total:     "10",
			participants: []Participant{
				{UserID: "Alice", Shares: dec("1")},
				{UserID: "Bob", Shares: dec("1")},
				{UserID: "Charlie", Shares: dec("1")},
			},
			want: []string{"3.34", "3.33", "3.33"},
		},
		{
			name:      "shares round half away from zero",
			splitType: models.SplitShares,
			total:     "10",
			participants: []Participant{
				{UserID: "Alice", Shares: dec("1")},
				{UserID: "Bob", Shares: dec("2")},
			},
			want: []string{"3.33", "6.67"},
		},
		{
			name:      "zero share weight is rejected",
			splitType: models.SplitShares,
			total:     "10",
			participants: []Participant{
				{UserID: "Alice", Shares: dec("0")},
				{UserID: "Bob", Shares: dec("1")},
			},
			wantKind: errs.Validation,
		},
		{
			name:      "exact split",
			splitType: models.SplitExact,
			total:     "100",
			participants: []Participant{
				{UserID: "Alice", Amount: dec("50.50")},
				{UserID: "Bob", Amount: dec("49.50")},
			},
			want: []string{"50.50", "49.50"},
		},
		{
			name:      "exact split not summing to total",
			splitType: models.SplitExact,
			total:     "100",
			participants: []Participant{
				{UserID: "Alice", Amount: dec("30")},
				{UserID: "Bob", Amount: dec("30")},
				{UserID: "Charlie", Amount: dec("30")},
			},
			wantKind: errs.Validation,
		},
		{
			name:      "exact split with sub-cent amount",
			splitType: models.SplitExact,
			total:     "10",
			participants: []Participant{
				{UserID: "Alice", Amount: dec("5.005")},
				{UserID: "Bob", Amount: dec("4.995")},
			},
			wantKind: errs.Validation,
		},
		{
			name:         "no participants",
			splitType:    models.SplitEqual,
			total:        "10",
			participants: nil,
			wantKind:     errs.Validation,
		},
		{
			name:         "zero amount",
			splitType:    models.SplitEqual,
			total:        "0",
			participants: people("Alice"),
			wantKind:     errs.Validation,
		},
		{
			name:         "negative amount",
			splitType:    models.SplitEqual,
			total:        "-5",
			participants: people("Alice"),
			wantKind:     errs.Validation,
		},
		{
			name:         "unknown split type",
			splitType:    models.SplitUnknown,
			total:        "10",
			participants: people("Alice"),
			wantKind:     errs.Validation,
		},
		{
			name:         "duplicate participant",
			splitType:    models.SplitEqual,
			total:        "10",
			participants: people("Alice", "Alice"),
			wantKind:     errs.Validation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Compute(tt.splitType, dec(tt.total), tt.participants)
			if tt.wantKind != errs.Unknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, errs.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, amounts(shares))
			assert.True(t, Sum(shares).Equal(dec(tt.total)), "shares sum to %s, want %s", Sum(shares), tt.total)
			for i, p := range tt.participants {
				assert.Equal(t, p.UserID, shares[i].UserID)
			}
		})
	}
}

func TestCompute_ExactSumInvariant(t *testing.T) {
	totals := []string{"0.01", "0.05", "1", "9.99", "10", "33.33", "100", "101.01", "999999.99"}
	groups := [][]Participant{
		people("A"),
		people("A", "B"),
		people("A", "B", "C"),
		people("A", "B", "C", "D", "E", "F", "G"),
	}

	for _, total := range totals {
		for _, group := range groups {
			shares, err := Compute(models.SplitEqual, dec(total), group)
			require.NoError(t, err)
			assert.True(t, Sum(shares).Equal(dec(total)), "equal %s among %d", total, len(group))

			weighted := make([]Participant, len(group))
			for i, p := range group {
				weighted[i] = Participant{UserID: p.UserID, Shares: decimal.NewFromInt(int64(i + 1))}
			}
			shares, err = Compute(models.SplitShares, dec(total), weighted)
			require.NoError(t, err)
			assert.True(t, Sum(shares).Equal(dec(total)), "shares %s among %d", total, len(group))
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	participants := people("Alice", "Bob", "Charlie")
	first, err := Compute(models.SplitEqual, dec("100"), participants)
	require.NoError(t, err)
	second, err := Compute(models.SplitEqual, dec("100"), participants)
	require.NoError(t, err)
	assert.Equal(t, amounts(first), amounts(second))
}
