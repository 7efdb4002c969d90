package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// recentSettlementLimit is how many settlements a balance summary carries.
const recentSettlementLimit = 5

// DefaultSuggestionThreshold is the net balance a relationship must exceed
// before a settlement is suggested for it.
var DefaultSuggestionThreshold = decimal.NewFromInt(10)

// Aggregator answers balance queries from current ledger data.
type Aggregator struct {
	store     storage.Reader
	members   Membership
	metrics   *metrics.Ledger
	logger    *slog.Logger
	threshold decimal.Decimal
}

// NewAggregator creates an Aggregator over store and members.
func NewAggregator(store storage.Reader, members Membership, threshold decimal.Decimal, opts ...Option) *Aggregator {
	o := buildOptions(opts)
	if !threshold.IsPositive() {
		threshold = DefaultSuggestionThreshold
	}
	return &Aggregator{
		store:     store,
		members:   members,
		metrics:   o.metrics,
		logger:    o.logger,
		threshold: threshold,
	}
}

// ComputeBalances returns userID's balances against each counterparty from
// unsettled splits, optionally limited to one group, with the user's most
// recent settlements.
func (a *Aggregator) ComputeBalances(ctx context.Context, userID, groupID string) (*calculator.Summary, error) {
	defer a.metrics.ObserveBalanceQuery("user", time.Now())

	expenses, err := a.store.ListExpenses(ctx, storage.ExpenseFilter{UserID: userID, GroupID: groupID})
	if err != nil {
		return nil, err
	}
	summary := calculator.UserBalances(userID, expenses)

	recent, err := a.store.ListSettlements(ctx, storage.SettlementFilter{
		UserID:  userID,
		GroupID: groupID,
		Limit:   recentSettlementLimit,
	})
	if err != nil {
		return nil, err
	}
	summary.RecentSettlements = recent.Settlements
	return summary, nil
}

// Plan is a group's simplified settlement plan.
type Plan struct {
	GroupID  string
	Balances []calculator.NetBalance

	// Transfers settle every balance in Balances.
	Transfers []calculator.Transfer

	// OriginalTransactions counts the payer-debtor pairs with unsettled debt.
	OriginalTransactions int
	Savings              int

	// FormerMembers hold a non-zero balance but have left the group.
	FormerMembers []string
}

// GroupPlan computes every participant's net balance in the group and the
// minimal transfers that clear them. The actor must be an active member.
func (a *Aggregator) GroupPlan(ctx context.Context, actor models.Actor, groupID string) (*Plan, error) {
	defer a.metrics.ObserveBalanceQuery("group", time.Now())

	if err := requireMember(ctx, a.members, actor.UserID, groupID); err != nil {
		return nil, err
	}
	expenses, err := a.store.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}

	balances := calculator.NetBalances(expenses)
	transfers, err := calculator.Optimize(balances)
	if err != nil {
		a.logger.ErrorContext(ctx, "Group balances do not conserve", "group_id", groupID, "error", err)
		return nil, err
	}
	a.metrics.ObserveTransfers(len(transfers))

	active, err := a.members.ListActiveMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	isActive := make(map[string]bool, len(active))
	for _, id := range active {
		isActive[id] = true
	}
	var former []string
	for _, b := range balances {
		if !isActive[b.Participant] && !b.NetBalance.IsZero() {
			former = append(former, b.Participant)
		}
	}

	original := pairwiseDebts(expenses)
	savings := original - len(transfers)
	if savings < 0 {
		savings = 0
	}
	return &Plan{
		GroupID:              groupID,
		Balances:             balances,
		Transfers:            transfers,
		OriginalTransactions: original,
		Savings:              savings,
		FormerMembers:        former,
	}, nil
}

// pairwiseDebts counts unordered user pairs with a non-zero net unsettled debt.
func pairwiseDebts(expenses []*models.Expense) int {
	net := make(map[[2]string]decimal.Decimal)
	for _, e := range expenses {
		for i := range e.Splits {
			s := &e.Splits[i]
			amount := s.Remaining()
			if amount.IsZero() || s.UserID == e.PaidByID {
				continue
			}
			key := [2]string{s.UserID, e.PaidByID}
			if key[1] < key[0] {
				key[0], key[1] = key[1], key[0]
				amount = amount.Neg()
			}
			net[key] = net[key].Add(amount)
		}
	}
	count := 0
	for _, amount := range net {
		if !amount.IsZero() {
			count++
		}
	}
	return count
}

// Suggestions recommends which of userID's relationships to settle first.
func (a *Aggregator) Suggestions(ctx context.Context, userID string) ([]calculator.Suggestion, error) {
	summary, err := a.ComputeBalances(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	return calculator.Suggest(summary.Relationships, a.threshold), nil
}
