package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the LedgerService.
const LedgerServiceName = "splitledger.v1.LedgerService"

// Procedure paths of the LedgerService.
const (
	ComputeSplitProcedure       = "/" + LedgerServiceName + "/ComputeSplit"
	CreateExpenseProcedure      = "/" + LedgerServiceName + "/CreateExpense"
	UpdateExpenseProcedure      = "/" + LedgerServiceName + "/UpdateExpense"
	DeleteExpenseProcedure      = "/" + LedgerServiceName + "/DeleteExpense"
	GetExpenseProcedure         = "/" + LedgerServiceName + "/GetExpense"
	GetBalancesProcedure        = "/" + LedgerServiceName + "/GetBalances"
	GetGroupPlanProcedure       = "/" + LedgerServiceName + "/GetGroupPlan"
	GetSuggestionsProcedure     = "/" + LedgerServiceName + "/GetSuggestions"
	CreateSettlementProcedure   = "/" + LedgerServiceName + "/CreateSettlement"
	CompleteSettlementProcedure = "/" + LedgerServiceName + "/CompleteSettlement"
	CancelSettlementProcedure   = "/" + LedgerServiceName + "/CancelSettlement"
	ListSettlementsProcedure    = "/" + LedgerServiceName + "/ListSettlements"
	ListActivityProcedure       = "/" + LedgerServiceName + "/ListActivity"
)

// NewLedgerServiceHandler builds an HTTP handler serving every procedure of
// svc, and returns the path to mount it on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ComputeSplitProcedure, connect.NewUnaryHandler(ComputeSplitProcedure, svc.ComputeSplit, opts...))
	mux.Handle(CreateExpenseProcedure, connect.NewUnaryHandler(CreateExpenseProcedure, svc.CreateExpense, opts...))
	mux.Handle(UpdateExpenseProcedure, connect.NewUnaryHandler(UpdateExpenseProcedure, svc.UpdateExpense, opts...))
	mux.Handle(DeleteExpenseProcedure, connect.NewUnaryHandler(DeleteExpenseProcedure, svc.DeleteExpense, opts...))
	mux.Handle(GetExpenseProcedure, connect.NewUnaryHandler(GetExpenseProcedure, svc.GetExpense, opts...))
	mux.Handle(GetBalancesProcedure, connect.NewUnaryHandler(GetBalancesProcedure, svc.GetBalances, opts...))
	mux.Handle(GetGroupPlanProcedure, connect.NewUnaryHandler(GetGroupPlanProcedure, svc.GetGroupPlan, opts...))
	mux.Handle(GetSuggestionsProcedure, connect.NewUnaryHandler(GetSuggestionsProcedure, svc.GetSuggestions, opts...))
	mux.Handle(CreateSettlementProcedure, connect.NewUnaryHandler(CreateSettlementProcedure, svc.CreateSettlement, opts...))
	mux.Handle(CompleteSettlementProcedure, connect.NewUnaryHandler(CompleteSettlementProcedure, svc.CompleteSettlement, opts...))
	mux.Handle(CancelSettlementProcedure, connect.NewUnaryHandler(CancelSettlementProcedure, svc.CancelSettlement, opts...))
	mux.Handle(ListSettlementsProcedure, connect.NewUnaryHandler(ListSettlementsProcedure, svc.ListSettlements, opts...))
	mux.Handle(ListActivityProcedure, connect.NewUnaryHandler(ListActivityProcedure, svc.ListActivity, opts...))

	return "/" + LedgerServiceName + "/", mux
}

// LedgerClient calls a LedgerService over Connect with JSON messages.
type LedgerClient struct {
	computeSplit       *connect.Client[ComputeSplitRequest, ComputeSplitResponse]
	createExpense      *connect.Client[CreateExpenseRequest, ExpenseResponse]
	updateExpense      *connect.Client[UpdateExpenseRequest, ExpenseResponse]
	deleteExpense      *connect.Client[ExpenseIDRequest, DeleteExpenseResponse]
	getExpense         *connect.Client[ExpenseIDRequest, ExpenseResponse]
	getBalances        *connect.Client[GetBalancesRequest, BalancesResponse]
	getGroupPlan       *connect.Client[GroupPlanRequest, GroupPlanResponse]
	getSuggestions     *connect.Client[SuggestionsRequest, SuggestionsResponse]
	createSettlement   *connect.Client[CreateSettlementRequest, SettlementResponse]
	completeSettlement *connect.Client[SettlementIDRequest, SettlementResponse]
	cancelSettlement   *connect.Client[SettlementIDRequest, SettlementResponse]
	listSettlements    *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
	listActivity       *connect.Client[ListActivityRequest, ListActivityResponse]
}

// NewLedgerClient creates a client for the LedgerService at baseURL.
func NewLedgerClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerClient {
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &LedgerClient{
		computeSplit:       connect.NewClient[ComputeSplitRequest, ComputeSplitResponse](httpClient, baseURL+ComputeSplitProcedure, opts...),
		createExpense:      connect.NewClient[CreateExpenseRequest, ExpenseResponse](httpClient, baseURL+CreateExpenseProcedure, opts...),
		updateExpense:      connect.NewClient[UpdateExpenseRequest, ExpenseResponse](httpClient, baseURL+UpdateExpenseProcedure, opts...),
		deleteExpense:      connect.NewClient[ExpenseIDRequest, DeleteExpenseResponse](httpClient, baseURL+DeleteExpenseProcedure, opts...),
		getExpense:         connect.NewClient[ExpenseIDRequest, ExpenseResponse](httpClient, baseURL+GetExpenseProcedure, opts...),
		getBalances:        connect.NewClient[GetBalancesRequest, BalancesResponse](httpClient, baseURL+GetBalancesProcedure, opts...),
		getGroupPlan:       connect.NewClient[GroupPlanRequest, GroupPlanResponse](httpClient, baseURL+GetGroupPlanProcedure, opts...),
		getSuggestions:     connect.NewClient[SuggestionsRequest, SuggestionsResponse](httpClient, baseURL+GetSuggestionsProcedure, opts...),
		createSettlement:   connect.NewClient[CreateSettlementRequest, SettlementResponse](httpClient, baseURL+CreateSettlementProcedure, opts...),
		completeSettlement: connect.NewClient[SettlementIDRequest, SettlementResponse](httpClient, baseURL+CompleteSettlementProcedure, opts...),
		cancelSettlement:   connect.NewClient[SettlementIDRequest, SettlementResponse](httpClient, baseURL+CancelSettlementProcedure, opts...),
		listSettlements:    connect.NewClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL+ListSettlementsProcedure, opts...),
		listActivity:       connect.NewClient[ListActivityRequest, ListActivityResponse](httpClient, baseURL+ListActivityProcedure, opts...),
	}
}

func (c *LedgerClient) ComputeSplit(ctx context.Context, req *connect.Request[ComputeSplitRequest]) (*connect.Response[ComputeSplitResponse], error) {
	return c.computeSplit.CallUnary(ctx, req)
}

func (c *LedgerClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *LedgerClient) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *LedgerClient) DeleteExpense(ctx context.Context, req *connect.Request[ExpenseIDRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *LedgerClient) GetExpense(ctx context.Context, req *connect.Request[ExpenseIDRequest]) (*connect.Response[ExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *LedgerClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[BalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *LedgerClient) GetGroupPlan(ctx context.Context, req *connect.Request[GroupPlanRequest]) (*connect.Response[GroupPlanResponse], error) {
	return c.getGroupPlan.CallUnary(ctx, req)
}

func (c *LedgerClient) GetSuggestions(ctx context.Context, req *connect.Request[SuggestionsRequest]) (*connect.Response[SuggestionsResponse], error) {
	return c.getSuggestions.CallUnary(ctx, req)
}

func (c *LedgerClient) CreateSettlement(ctx context.Context, req *connect.Request[CreateSettlementRequest]) (*connect.Response[SettlementResponse], error) {
	return c.createSettlement.CallUnary(ctx, req)
}

func (c *LedgerClient) CompleteSettlement(ctx context.Context, req *connect.Request[SettlementIDRequest]) (*connect.Response[SettlementResponse], error) {
	return c.completeSettlement.CallUnary(ctx, req)
}

func (c *LedgerClient) CancelSettlement(ctx context.Context, req *connect.Request[SettlementIDRequest]) (*connect.Response[SettlementResponse], error) {
	return c.cancelSettlement.CallUnary(ctx, req)
}

func (c *LedgerClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *LedgerClient) ListActivity(ctx context.Context, req *connect.Request[ListActivityRequest]) (*connect.Response[ListActivityResponse], error) {
	return c.listActivity.CallUnary(ctx, req)
}
