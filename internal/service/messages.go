package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
)

// Amounts travel as decimal strings ("12.50"); enums as their names.

type Participant struct {
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	Shares     decimal.Decimal `json:"shares"`
}

type Share struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type ComputeSplitRequest struct {
	SplitType    models.SplitType `json:"split_type"`
	Amount       decimal.Decimal  `json:"amount"`
	Participants []Participant    `json:"participants"`
}

type ComputeSplitResponse struct {
	Shares []Share `json:"shares"`
}

// ExpenseFields is the editable content of an expense.
type ExpenseFields struct {
	GroupID      string           `json:"group_id,omitempty"`
	PaidByID     string           `json:"paid_by_id,omitempty"`
	Description  string           `json:"description"`
	Amount       decimal.Decimal  `json:"amount"`
	Currency     string           `json:"currency"`
	SplitType    models.SplitType `json:"split_type"`
	Date         *time.Time       `json:"date,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	Participants []Participant    `json:"participants"`
	TagIDs       []string         `json:"tag_ids,omitempty"`
}

type CreateExpenseRequest struct {
	ExpenseFields
}

type UpdateExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
	ExpenseFields
}

type ExpenseIDRequest struct {
	ExpenseID string `json:"expense_id"`
}

type Split struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Percentage    decimal.NullDecimal `json:"percentage"`
	Shares        decimal.NullDecimal `json:"shares"`
	SettledAmount decimal.Decimal     `json:"settled_amount"`
	IsSettled     bool                `json:"is_settled"`
	SettledAt     *time.Time          `json:"settled_at,omitempty"`
}

type Expense struct {
	ID          string           `json:"id"`
	GroupID     string           `json:"group_id,omitempty"`
	PaidByID    string           `json:"paid_by_id"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency"`
	SplitType   models.SplitType `json:"split_type"`
	Date        time.Time        `json:"date"`
	Notes       string           `json:"notes,omitempty"`
	Splits      []Split          `json:"splits"`
	TagIDs      []string         `json:"tag_ids,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type ExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type DeleteExpenseResponse struct{}

type GetBalancesRequest struct {
	GroupID string `json:"group_id,omitempty"`
}

type Relationship struct {
	CounterpartyID string          `json:"counterparty_id"`
	OwedToMe       decimal.Decimal `json:"owed_to_me"`
	IOwe           decimal.Decimal `json:"i_owe"`
	NetBalance     decimal.Decimal `json:"net_balance"`
}

type BalancesResponse struct {
	TotalOwed         decimal.Decimal `json:"total_owed"`
	TotalOwing        decimal.Decimal `json:"total_owing"`
	NetBalance        decimal.Decimal `json:"net_balance"`
	Relationships     []Relationship  `json:"relationships"`
	RecentSettlements []Settlement    `json:"recent_settlements"`
}

type GroupPlanRequest struct {
	GroupID string `json:"group_id"`
}

type NetBalance struct {
	UserID     string          `json:"user_id"`
	NetBalance decimal.Decimal `json:"net_balance"`
}

type Transfer struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type GroupPlanResponse struct {
	GroupID               string       `json:"group_id"`
	Balances              []NetBalance `json:"balances"`
	Transfers             []Transfer   `json:"transfers"`
	OriginalTransactions  int          `json:"original_transactions"`
	OptimizedTransactions int          `json:"optimized_transactions"`
	Savings               int          `json:"savings"`
	FormerMembers         []string     `json:"former_members,omitempty"`
}

type SuggestionsRequest struct{}

type Suggestion struct {
	CounterpartyID  string                    `json:"counterparty_id"`
	Amount          decimal.Decimal           `json:"amount"`
	Type            calculator.SuggestionType `json:"type"`
	Priority        decimal.Decimal           `json:"priority"`
	SuggestedMethod models.SettlementMethod   `json:"suggested_method"`
}

type SuggestionsResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type CreateSettlementRequest struct {
	PaidToID string                  `json:"paid_to_id"`
	GroupID  string                  `json:"group_id,omitempty"`
	Amount   decimal.Decimal         `json:"amount"`
	Method   models.SettlementMethod `json:"method,omitempty"`
	Note     string                  `json:"note,omitempty"`
}

type SettlementIDRequest struct {
	SettlementID string `json:"settlement_id"`
}

type Settlement struct {
	ID        string                  `json:"id"`
	PaidByID  string                  `json:"paid_by_id"`
	PaidToID  string                  `json:"paid_to_id"`
	GroupID   string                  `json:"group_id,omitempty"`
	Amount    decimal.Decimal         `json:"amount"`
	Method    models.SettlementMethod `json:"method"`
	Status    models.SettlementStatus `json:"status"`
	Note      string                  `json:"note,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	SettledAt *time.Time              `json:"settled_at,omitempty"`
}

type SettlementResponse struct {
	Settlement Settlement `json:"settlement"`
}

type ListSettlementsRequest struct {
	GroupID        string                  `json:"group_id,omitempty"`
	CounterpartyID string                  `json:"counterparty_id,omitempty"`
	Status         models.SettlementStatus `json:"status,omitempty"`
	Method         models.SettlementMethod `json:"method,omitempty"`
	From           *time.Time              `json:"from,omitempty"`
	To             *time.Time              `json:"to,omitempty"`
	Page           int                     `json:"page,omitempty"`
	Limit          int                     `json:"limit,omitempty"`
}

type ListSettlementsResponse struct {
	Settlements []Settlement    `json:"settlements"`
	Page        int             `json:"page"`
	Limit       int             `json:"limit"`
	TotalItems  int             `json:"total_items"`
	TotalPages  int             `json:"total_pages"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type ListActivityRequest struct {
	GroupID string `json:"group_id,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type Activity struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	GroupID      string         `json:"group_id,omitempty"`
	Type         string         `json:"type"`
	ExpenseID    string         `json:"expense_id,omitempty"`
	SettlementID string         `json:"settlement_id,omitempty"`
	Action       string         `json:"action"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type ListActivityResponse struct {
	Activities []Activity `json:"activities"`
}

func participantsIn(in []Participant) []calculator.Participant {
	out := make([]calculator.Participant, len(in))
	for i, p := range in {
		out[i] = calculator.Participant{
			UserID:     p.UserID,
			Amount:     p.Amount,
			Percentage: p.Percentage,
			Shares:     p.Shares,
		}
	}
	return out
}

func expenseInput(f ExpenseFields) ledger.ExpenseInput {
	in := ledger.ExpenseInput{
		GroupID:      f.GroupID,
		PaidByID:     f.PaidByID,
		Description:  f.Description,
		Amount:       f.Amount,
		Currency:     f.Currency,
		SplitType:    f.SplitType,
		Notes:        f.Notes,
		Participants: participantsIn(f.Participants),
		TagIDs:       f.TagIDs,
	}
	if f.Date != nil {
		in.Date = f.Date.UTC()
	}
	return in
}

func expenseOut(e *models.Expense) Expense {
	groupID, _ := models.GroupIDOf(e.Scope)
	out := Expense{
		ID:          e.ID,
		GroupID:     groupID,
		PaidByID:    e.PaidByID,
		Description: e.Description,
		Amount:      e.Amount,
		Currency:    e.Currency,
		SplitType:   e.SplitType,
		Date:        e.Date,
		Notes:       e.Notes,
		Splits:      make([]Split, len(e.Splits)),
		TagIDs:      e.TagIDs,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	for i, s := range e.Splits {
		out.Splits[i] = Split{
			ID:            s.ID,
			UserID:        s.UserID,
			Amount:        s.Amount,
			Percentage:    s.Percentage,
			Shares:        s.Shares,
			SettledAmount: s.SettledAmount,
			IsSettled:     s.IsSettled,
			SettledAt:     s.SettledAt,
		}
	}
	return out
}

func settlementOut(s *models.Settlement) Settlement {
	groupID, _ := models.GroupIDOf(s.Scope)
	return Settlement{
		ID:        s.ID,
		PaidByID:  s.PaidByID,
		PaidToID:  s.PaidToID,
		GroupID:   groupID,
		Amount:    s.Amount,
		Method:    s.Method,
		Status:    s.Status,
		Note:      s.Note,
		CreatedAt: s.CreatedAt,
		SettledAt: s.SettledAt,
	}
}

func settlementsOut(in []*models.Settlement) []Settlement {
	out := make([]Settlement, len(in))
	for i, s := range in {
		out[i] = settlementOut(s)
	}
	return out
}

func activityOut(a *models.Activity) Activity {
	groupID, _ := models.GroupIDOf(a.Scope)
	return Activity{
		ID:           a.ID,
		ActorID:      a.ActorID,
		GroupID:      groupID,
		Type:         string(a.Type),
		ExpenseID:    a.ExpenseID,
		SettlementID: a.SettlementID,
		Action:       a.Action,
		Metadata:     a.Metadata,
		CreatedAt:    a.CreatedAt,
	}
}
