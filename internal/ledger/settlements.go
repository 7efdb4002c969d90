package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// SettlementInput records a payment from the actor to PaidToID.
type SettlementInput struct {
	PaidToID string

	// GroupID limits the debts the payment clears. Empty means every scope.
	GroupID string

	Amount decimal.Decimal

	// Method defaults to CASH.
	Method models.SettlementMethod
	Note   string
}

// SettlementQuery selects one page of the actor's settlement history.
type SettlementQuery struct {
	// GroupID lists every settlement of the group instead of the actor's own.
	GroupID        string
	CounterpartyID string
	Status         models.SettlementStatus
	Method         models.SettlementMethod
	From           time.Time
	To             time.Time

	// Page is 1-based. Limit defaults to 10.
	Page  int
	Limit int
}

// SettlementList is one page of settlements.
type SettlementList struct {
	Settlements []*models.Settlement
	Page        int
	Limit       int
	TotalItems  int
	TotalPages  int

	// TotalAmount sums every settlement matching the query, not just this page.
	TotalAmount decimal.Decimal
}

func settlementMetadata(s *models.Settlement) map[string]any {
	return map[string]any{
		"amount":     s.Amount.StringFixed(2),
		"method":     s.Method.String(),
		"paid_by_id": s.PaidByID,
		"paid_to_id": s.PaidToID,
		"status":     s.Status.String(),
	}
}

// owedInScope returns what debtorID owes creditorID over the remaining parts
// of their splits in groupID's scope, or in every scope when groupID is empty.
func owedInScope(ctx context.Context, r storage.Reader, debtorID, creditorID, groupID string) (decimal.Decimal, []*models.Expense, error) {
	expenses, err := r.ListPairExpenses(ctx, debtorID, creditorID, groupID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return calculator.OutstandingBalance(debtorID, creditorID, expenses), expenses, nil
}

// reserved sums the debtor's PENDING settlements to creditorID that may clear
// debts in groupID's scope. A group request counts the group's settlements
// and the all-scope ones; an all-scope request counts every one.
func reserved(ctx context.Context, r storage.Reader, debtorID, creditorID, groupID string) (decimal.Decimal, error) {
	pending, err := r.ListSettlements(ctx, storage.SettlementFilter{
		UserID:         debtorID,
		CounterpartyID: creditorID,
		Status:         models.StatusPending,
	})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, s := range pending.Settlements {
		if s.PaidByID != debtorID {
			continue
		}
		if gid, ok := models.GroupIDOf(s.Scope); groupID == "" || !ok || gid == groupID {
			total = total.Add(s.Amount)
		}
	}
	return total, nil
}

// CreateSettlement records a PENDING payment from the actor. The amount may
// not exceed what the actor currently owes the payee.
func (c *Coordinator) CreateSettlement(ctx context.Context, actor models.Actor, in SettlementInput) (settlement *models.Settlement, err error) {
	defer func() { c.metrics.ObserveMutation("create_settlement", err) }()

	if in.PaidToID == "" {
		return nil, errs.New(errs.Validation, "payee is required")
	}
	if in.PaidToID == actor.UserID {
		return nil, errs.New(errs.Validation, "cannot settle with yourself")
	}
	if !in.Amount.IsPositive() {
		return nil, errs.New(errs.Validation, "amount must be greater than zero")
	}
	if !in.Amount.Equal(in.Amount.Truncate(2)) {
		return nil, errs.Newf(errs.Validation, "amount %s has more than 2 decimal places", in.Amount)
	}
	if in.Method == models.MethodUnknown {
		in.Method = models.MethodCash
	}
	if in.GroupID != "" {
		if err := requireMember(ctx, c.members, actor.UserID, in.GroupID); err != nil {
			return nil, err
		}
		member, err := c.members.IsActiveMember(ctx, in.PaidToID, in.GroupID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, errs.Newf(errs.Validation, "user %s is not an active member of group %s", in.PaidToID, in.GroupID)
		}
	}

	unlock := c.locks.lock(actor.UserID, in.PaidToID)
	defer unlock()

	now := c.timestamp()
	settlement = &models.Settlement{
		PaidByID:  actor.UserID,
		PaidToID:  in.PaidToID,
		Scope:     models.ScopeOf(in.GroupID),
		Amount:    in.Amount,
		Method:    in.Method,
		Status:    models.StatusPending,
		Note:      in.Note,
		CreatedAt: now,
	}

	var activity *models.Activity
	err = c.store.WithTx(ctx, func(tx storage.Tx) error {
		owed, _, err := owedInScope(ctx, tx, actor.UserID, in.PaidToID, in.GroupID)
		if err != nil {
			return err
		}
		pending, err := reserved(ctx, tx, actor.UserID, in.PaidToID, in.GroupID)
		if err != nil {
			return err
		}
		owed = owed.Sub(pending)
		if !owed.IsPositive() {
			return errs.Newf(errs.Conflict, "no outstanding balance with user %s", in.PaidToID)
		}
		if in.Amount.GreaterThan(owed) {
			return errs.Newf(errs.Conflict, "amount %s exceeds outstanding balance %s",
				in.Amount.StringFixed(2), owed.StringFixed(2))
		}
		if err := tx.CreateSettlement(ctx, settlement); err != nil {
			return err
		}
		activity = &models.Activity{
			ActorID:      actor.UserID,
			Scope:        settlement.Scope,
			Type:         models.ActivitySettlementMade,
			SettlementID: settlement.ID,
			Action:       fmt.Sprintf("%s recorded a payment of %s", displayName(actor), settlement.Amount.StringFixed(2)),
			Metadata:     settlementMetadata(settlement),
			CreatedAt:    now,
		}
		return tx.AppendActivity(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Settlement created",
		"settlement_id", settlement.ID, "paid_by_id", settlement.PaidByID,
		"paid_to_id", settlement.PaidToID, "amount", settlement.Amount.StringFixed(2))
	c.commit(ctx, activity, []string{settlement.PaidByID, settlement.PaidToID})
	return settlement, nil
}

// splitPayments spreads a completed settlement over the pair's splits. Every
// remaining split the creditor owes the debtor is paid off, and the amount
// plus those reverse debts pays down the debtor's splits owed to the
// creditor, oldest first; the last one reached may be paid in part. The net
// debt therefore drops by exactly the settlement amount.
//
// The caller must have checked that the amount does not exceed the net debt.
func splitPayments(s *models.Settlement, expenses []*models.Expense) ([]storage.SplitPayment, error) {
	var payments []storage.SplitPayment
	budget := s.Amount
	for _, e := range expenses {
		if e.PaidByID != s.PaidByID {
			continue
		}
		if split, ok := e.SplitFor(s.PaidToID); ok && split.Remaining().IsPositive() {
			payments = append(payments, storage.SplitPayment{SplitID: split.ID, Amount: split.Remaining()})
			budget = budget.Add(split.Remaining())
		}
	}

	for _, e := range expenses {
		if !budget.IsPositive() {
			break
		}
		if e.PaidByID != s.PaidToID {
			continue
		}
		split, ok := e.SplitFor(s.PaidByID)
		if !ok || !split.Remaining().IsPositive() {
			continue
		}
		pay := decimal.Min(split.Remaining(), budget)
		payments = append(payments, storage.SplitPayment{SplitID: split.ID, Amount: pay})
		budget = budget.Sub(pay)
	}

	if budget.IsPositive() {
		return nil, errs.Newf(errs.InternalConsistency,
			"settlement %s leaves %s unapplied", s.ID, budget.StringFixed(2))
	}
	return payments, nil
}

// loadSettlementFor fetches a settlement the actor is party to.
func (c *Coordinator) loadSettlementFor(ctx context.Context, actor models.Actor, settlementID string) (*models.Settlement, error) {
	s, err := c.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if !s.Involves(actor.UserID) {
		return nil, errs.New(errs.Authorization, "settlement does not involve this user")
	}
	if s.Status.Terminal() {
		return nil, errs.Newf(errs.Conflict, "settlement is already %s", s.Status)
	}
	return s, nil
}

// CompleteSettlement moves a PENDING settlement to COMPLETED and pays its
// amount down on the pair's splits.
func (c *Coordinator) CompleteSettlement(ctx context.Context, actor models.Actor, settlementID string) (settlement *models.Settlement, err error) {
	defer func() { c.metrics.ObserveMutation("complete_settlement", err) }()

	s, err := c.loadSettlementFor(ctx, actor, settlementID)
	if err != nil {
		return nil, err
	}
	groupID, _ := models.GroupIDOf(s.Scope)

	unlock := c.locks.lock(s.PaidByID, s.PaidToID)
	defer unlock()

	now := c.timestamp()
	var activity *models.Activity
	err = c.store.WithTx(ctx, func(tx storage.Tx) error {
		current, err := tx.GetSettlement(ctx, settlementID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return errs.Newf(errs.Conflict, "settlement is already %s", current.Status)
		}

		// Other pending settlements are checked again when they complete.
		owed, expenses, err := owedInScope(ctx, tx, current.PaidByID, current.PaidToID, groupID)
		if err != nil {
			return err
		}
		if current.Amount.GreaterThan(owed) {
			return errs.Newf(errs.Conflict, "amount %s exceeds outstanding balance %s",
				current.Amount.StringFixed(2), owed.StringFixed(2))
		}

		if err := tx.UpdateSettlementStatus(ctx, current.ID, models.StatusCompleted, &now); err != nil {
			return err
		}
		payments, err := splitPayments(current, expenses)
		if err != nil {
			return err
		}
		if err := tx.ApplySplitPayments(ctx, payments, now); err != nil {
			return err
		}

		current.Status = models.StatusCompleted
		current.SettledAt = &now
		settlement = current

		metadata := settlementMetadata(current)
		metadata["paid_splits"] = len(payments)
		activity = &models.Activity{
			ActorID:      actor.UserID,
			Scope:        current.Scope,
			Type:         models.ActivitySettlementCompleted,
			SettlementID: current.ID,
			Action:       fmt.Sprintf("%s completed a payment of %s", displayName(actor), current.Amount.StringFixed(2)),
			Metadata:     metadata,
			CreatedAt:    now,
		}
		return tx.AppendActivity(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Settlement completed", "settlement_id", settlement.ID)
	c.commit(ctx, activity, []string{settlement.PaidByID, settlement.PaidToID})
	return settlement, nil
}

// CancelSettlement moves a PENDING settlement to CANCELLED. No splits change.
func (c *Coordinator) CancelSettlement(ctx context.Context, actor models.Actor, settlementID string) (settlement *models.Settlement, err error) {
	defer func() { c.metrics.ObserveMutation("cancel_settlement", err) }()

	s, err := c.loadSettlementFor(ctx, actor, settlementID)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.lock(s.PaidByID, s.PaidToID)
	defer unlock()

	now := c.timestamp()
	var activity *models.Activity
	err = c.store.WithTx(ctx, func(tx storage.Tx) error {
		current, err := tx.GetSettlement(ctx, settlementID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return errs.Newf(errs.Conflict, "settlement is already %s", current.Status)
		}
		if err := tx.UpdateSettlementStatus(ctx, current.ID, models.StatusCancelled, nil); err != nil {
			return err
		}
		current.Status = models.StatusCancelled
		settlement = current

		activity = &models.Activity{
			ActorID:      actor.UserID,
			Scope:        current.Scope,
			Type:         models.ActivitySettlementCancelled,
			SettlementID: current.ID,
			Action:       fmt.Sprintf("%s cancelled a payment of %s", displayName(actor), current.Amount.StringFixed(2)),
			Metadata:     settlementMetadata(current),
			CreatedAt:    now,
		}
		return tx.AppendActivity(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Settlement cancelled", "settlement_id", settlement.ID)
	c.commit(ctx, activity, []string{settlement.PaidByID, settlement.PaidToID})
	return settlement, nil
}

// ListSettlements returns one page of settlements visible to the actor.
func (c *Coordinator) ListSettlements(ctx context.Context, actor models.Actor, q SettlementQuery) (*SettlementList, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}

	filter := storage.SettlementFilter{
		UserID:         actor.UserID,
		GroupID:        q.GroupID,
		CounterpartyID: q.CounterpartyID,
		Status:         q.Status,
		Method:         q.Method,
		From:           q.From,
		To:             q.To,
		Offset:         (q.Page - 1) * q.Limit,
		Limit:          q.Limit,
	}
	if q.GroupID != "" {
		if err := requireMember(ctx, c.members, actor.UserID, q.GroupID); err != nil {
			return nil, err
		}
		if q.CounterpartyID == "" {
			filter.UserID = ""
		}
	}

	page, err := c.store.ListSettlements(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &SettlementList{
		Settlements: page.Settlements,
		Page:        q.Page,
		Limit:       q.Limit,
		TotalItems:  page.Total,
		TotalPages:  (page.Total + q.Limit - 1) / q.Limit,
		TotalAmount: page.TotalAmount,
	}, nil
}

// ListActivity returns the newest activity of a group, or the actor's own
// activity when groupID is empty.
func (c *Coordinator) ListActivity(ctx context.Context, actor models.Actor, groupID string, limit int) ([]*models.Activity, error) {
	if limit <= 0 || limit > maxPageLimit {
		limit = 50
	}
	filter := storage.ActivityFilter{GroupID: groupID, Limit: limit}
	if groupID == "" {
		filter.UserID = actor.UserID
	} else if err := requireMember(ctx, c.members, actor.UserID, groupID); err != nil {
		return nil, err
	}
	return c.store.ListActivity(ctx, filter)
}
