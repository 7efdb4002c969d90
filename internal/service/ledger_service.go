package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	coord  *ledger.Coordinator
	agg    *ledger.Aggregator
	logger *slog.Logger
}

// NewLedgerService creates a LedgerService over the given coordinator and aggregator.
func NewLedgerService(coord *ledger.Coordinator, agg *ledger.Aggregator, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{coord: coord, agg: agg, logger: logger}
}

var errUnauthenticated = errors.New("authentication required")

func actorFrom(ctx context.Context) (models.Actor, error) {
	actor, ok := middleware.GetActor(ctx)
	if !ok {
		return models.Actor{}, connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
	}
	return actor, nil
}

func (s *LedgerService) fail(ctx context.Context, procedure string, err error) error {
	return toConnectError(ctx, s.logger, procedure, err)
}

// ComputeSplit previews the shares of an expense without persisting anything.
func (s *LedgerService) ComputeSplit(ctx context.Context, req *connect.Request[ComputeSplitRequest]) (*connect.Response[ComputeSplitResponse], error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	shares, err := calculator.Compute(req.Msg.SplitType, req.Msg.Amount, participantsIn(req.Msg.Participants))
	if err != nil {
		return nil, s.fail(ctx, "ComputeSplit", err)
	}

	out := make([]Share, len(shares))
	for i, share := range shares {
		out[i] = Share{UserID: share.UserID, Amount: share.Amount}
	}
	return connect.NewResponse(&ComputeSplitResponse{Shares: out}), nil
}

// CreateExpense records an expense paid by the actor or, for group admins,
// by another member.
func (s *LedgerService) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	expense, err := s.coord.CreateExpense(ctx, actor, expenseInput(req.Msg.ExpenseFields))
	if err != nil {
		return nil, s.fail(ctx, "CreateExpense", err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: expenseOut(expense)}), nil
}

// UpdateExpense replaces an unsettled expense.
func (s *LedgerService) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	expense, err := s.coord.UpdateExpense(ctx, actor, req.Msg.ExpenseID, expenseInput(req.Msg.ExpenseFields))
	if err != nil {
		return nil, s.fail(ctx, "UpdateExpense", err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: expenseOut(expense)}), nil
}

// DeleteExpense removes an expense and its splits.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[ExpenseIDRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.coord.DeleteExpense(ctx, actor, req.Msg.ExpenseID); err != nil {
		return nil, s.fail(ctx, "DeleteExpense", err)
	}
	return connect.NewResponse(&DeleteExpenseResponse{}), nil
}

// GetExpense retrieves one expense visible to the actor.
func (s *LedgerService) GetExpense(ctx context.Context, req *connect.Request[ExpenseIDRequest]) (*connect.Response[ExpenseResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	expense, err := s.coord.GetExpense(ctx, actor, req.Msg.ExpenseID)
	if err != nil {
		return nil, s.fail(ctx, "GetExpense", err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: expenseOut(expense)}), nil
}

// GetBalances returns the actor's balance summary.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := s.agg.ComputeBalances(ctx, actor.UserID, req.Msg.GroupID)
	if err != nil {
		return nil, s.fail(ctx, "GetBalances", err)
	}

	resp := &BalancesResponse{
		TotalOwed:         summary.TotalOwed,
		TotalOwing:        summary.TotalOwing,
		NetBalance:        summary.NetBalance,
		Relationships:     make([]Relationship, len(summary.Relationships)),
		RecentSettlements: settlementsOut(summary.RecentSettlements),
	}
	for i, r := range summary.Relationships {
		resp.Relationships[i] = Relationship{
			CounterpartyID: r.CounterpartyID,
			OwedToMe:       r.OwedToMe,
			IOwe:           r.IOwe,
			NetBalance:     r.NetBalance,
		}
	}
	return connect.NewResponse(resp), nil
}

// GetGroupPlan returns the simplified transfers that settle a group.
func (s *LedgerService) GetGroupPlan(ctx context.Context, req *connect.Request[GroupPlanRequest]) (*connect.Response[GroupPlanResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := s.agg.GroupPlan(ctx, actor, req.Msg.GroupID)
	if err != nil {
		return nil, s.fail(ctx, "GetGroupPlan", err)
	}

	resp := &GroupPlanResponse{
		GroupID:               plan.GroupID,
		Balances:              make([]NetBalance, len(plan.Balances)),
		Transfers:             make([]Transfer, len(plan.Transfers)),
		OriginalTransactions:  plan.OriginalTransactions,
		OptimizedTransactions: len(plan.Transfers),
		Savings:               plan.Savings,
		FormerMembers:         plan.FormerMembers,
	}
	for i, b := range plan.Balances {
		resp.Balances[i] = NetBalance{UserID: b.Participant, NetBalance: b.NetBalance}
	}
	for i, t := range plan.Transfers {
		resp.Transfers[i] = Transfer{From: t.From, To: t.To, Amount: t.Amount}
	}
	return connect.NewResponse(resp), nil
}

// GetSuggestions recommends which of the actor's debts to settle first.
func (s *LedgerService) GetSuggestions(ctx context.Context, req *connect.Request[SuggestionsRequest]) (*connect.Response[SuggestionsResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.agg.Suggestions(ctx, actor.UserID)
	if err != nil {
		return nil, s.fail(ctx, "GetSuggestions", err)
	}

	out := make([]Suggestion, len(suggestions))
	for i, sg := range suggestions {
		out[i] = Suggestion{
			CounterpartyID:  sg.CounterpartyID,
			Amount:          sg.Amount,
			Type:            sg.Type,
			Priority:        sg.Priority,
			SuggestedMethod: sg.SuggestedMethod,
		}
	}
	return connect.NewResponse(&SuggestionsResponse{Suggestions: out}), nil
}

// CreateSettlement records a pending payment from the actor.
func (s *LedgerService) CreateSettlement(ctx context.Context, req *connect.Request[CreateSettlementRequest]) (*connect.Response[SettlementResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	settlement, err := s.coord.CreateSettlement(ctx, actor, ledger.SettlementInput{
		PaidToID: req.Msg.PaidToID,
		GroupID:  req.Msg.GroupID,
		Amount:   req.Msg.Amount,
		Method:   req.Msg.Method,
		Note:     req.Msg.Note,
	})
	if err != nil {
		return nil, s.fail(ctx, "CreateSettlement", err)
	}
	return connect.NewResponse(&SettlementResponse{Settlement: settlementOut(settlement)}), nil
}

// CompleteSettlement confirms a pending settlement.
func (s *LedgerService) CompleteSettlement(ctx context.Context, req *connect.Request[SettlementIDRequest]) (*connect.Response[SettlementResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	settlement, err := s.coord.CompleteSettlement(ctx, actor, req.Msg.SettlementID)
	if err != nil {
		return nil, s.fail(ctx, "CompleteSettlement", err)
	}
	return connect.NewResponse(&SettlementResponse{Settlement: settlementOut(settlement)}), nil
}

// CancelSettlement withdraws a pending settlement.
func (s *LedgerService) CancelSettlement(ctx context.Context, req *connect.Request[SettlementIDRequest]) (*connect.Response[SettlementResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	settlement, err := s.coord.CancelSettlement(ctx, actor, req.Msg.SettlementID)
	if err != nil {
		return nil, s.fail(ctx, "CancelSettlement", err)
	}
	return connect.NewResponse(&SettlementResponse{Settlement: settlementOut(settlement)}), nil
}

// ListSettlements pages through the actor's or a group's settlements.
func (s *LedgerService) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	q := ledger.SettlementQuery{
		GroupID:        req.Msg.GroupID,
		CounterpartyID: req.Msg.CounterpartyID,
		Status:         req.Msg.Status,
		Method:         req.Msg.Method,
		Page:           req.Msg.Page,
		Limit:          req.Msg.Limit,
	}
	if req.Msg.From != nil {
		q.From = *req.Msg.From
	}
	if req.Msg.To != nil {
		q.To = *req.Msg.To
	}

	list, err := s.coord.ListSettlements(ctx, actor, q)
	if err != nil {
		return nil, s.fail(ctx, "ListSettlements", err)
	}
	return connect.NewResponse(&ListSettlementsResponse{
		Settlements: settlementsOut(list.Settlements),
		Page:        list.Page,
		Limit:       list.Limit,
		TotalItems:  list.TotalItems,
		TotalPages:  list.TotalPages,
		TotalAmount: list.TotalAmount,
	}), nil
}

// ListActivity returns the newest activity of a group or of the actor.
func (s *LedgerService) ListActivity(ctx context.Context, req *connect.Request[ListActivityRequest]) (*connect.Response[ListActivityResponse], error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	activities, err := s.coord.ListActivity(ctx, actor, req.Msg.GroupID, req.Msg.Limit)
	if err != nil {
		return nil, s.fail(ctx, "ListActivity", err)
	}

	out := make([]Activity, len(activities))
	for i, a := range activities {
		out[i] = activityOut(a)
	}
	return connect.NewResponse(&ListActivityResponse{Activities: out}), nil
}
