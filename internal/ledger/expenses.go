package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// ExpenseInput is the caller-supplied content of a new or updated expense.
type ExpenseInput struct {
	// GroupID is empty for a personal expense.
	GroupID string

	// PaidByID defaults to the actor when empty.
	PaidByID string

	Description  string
	Amount       decimal.Decimal
	Currency     string
	SplitType    models.SplitType
	Date         time.Time
	Notes        string
	Participants []calculator.Participant
	TagIDs       []string
}

func (in *ExpenseInput) normalize(actor models.Actor, now time.Time) error {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return errs.New(errs.Validation, "description is required")
	}
	if in.PaidByID == "" {
		in.PaidByID = actor.UserID
	}
	if in.Date.IsZero() {
		in.Date = now
	}
	if in.Currency == "" {
		return errs.New(errs.Validation, "currency is required")
	}
	unit, err := currency.ParseISO(in.Currency)
	if err != nil {
		return errs.Wrap(errs.Validation, err, "invalid currency "+in.Currency)
	}
	in.Currency = unit.String()

	seen := make(map[string]bool, len(in.TagIDs))
	for _, id := range in.TagIDs {
		if seen[id] {
			return errs.Newf(errs.Conflict, "tag %s is attached more than once", id)
		}
		seen[id] = true
	}
	return nil
}

// participantIDs returns the payer and every split participant.
func (in *ExpenseInput) participantIDs() []string {
	ids := []string{in.PaidByID}
	for _, p := range in.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// checkScope verifies the actor may record in as its payer and that every
// participant belongs to the group.
func (c *Coordinator) checkScope(ctx context.Context, actor models.Actor, in *ExpenseInput) error {
	scope := models.ScopeOf(in.GroupID)
	ok, err := c.canManage(ctx, actor, in.PaidByID, scope)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Authorization, "only the payer or a group admin may record this expense")
	}
	if in.GroupID == "" {
		return nil
	}
	if err := requireMember(ctx, c.members, actor.UserID, in.GroupID); err != nil {
		return err
	}
	for _, id := range in.participantIDs() {
		member, err := c.members.IsActiveMember(ctx, id, in.GroupID)
		if err != nil {
			return err
		}
		if !member {
			return errs.Newf(errs.Validation, "user %s is not an active member of group %s", id, in.GroupID)
		}
	}
	return nil
}

// buildSplits runs the split strategy and keeps the caller's inputs for audit.
func buildSplits(in *ExpenseInput) ([]models.Split, error) {
	shares, err := calculator.Compute(in.SplitType, in.Amount, in.Participants)
	if err != nil {
		return nil, err
	}
	splits := make([]models.Split, len(shares))
	for i, share := range shares {
		splits[i] = models.Split{UserID: share.UserID, Amount: share.Amount}
		switch in.SplitType {
		case models.SplitPercentage:
			splits[i].Percentage = decimal.NewNullDecimal(in.Participants[i].Percentage)
		case models.SplitShares:
			splits[i].Shares = decimal.NewNullDecimal(in.Participants[i].Shares)
		}
	}
	return splits, nil
}

func checkTags(ctx context.Context, r storage.Reader, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	missing, err := r.MissingTag(ctx, tagIDs)
	if err != nil {
		return err
	}
	if missing != "" {
		return errs.Newf(errs.NotFound, "tag %s not found", missing)
	}
	return nil
}

func splitRecipients(e *models.Expense) []string {
	ids := []string{e.PaidByID}
	for _, s := range e.Splits {
		ids = append(ids, s.UserID)
	}
	return ids
}

func expenseMetadata(e *models.Expense) map[string]any {
	return map[string]any{
		"description": e.Description,
		"amount":      e.Amount.StringFixed(2),
		"currency":    e.Currency,
		"split_type":  e.SplitType.String(),
		"paid_by_id":  e.PaidByID,
		"splits":      len(e.Splits),
	}
}

// CreateExpense validates in, computes its splits and persists the expense,
// its splits, its tag links and an EXPENSE_CREATED activity atomically.
func (c *Coordinator) CreateExpense(ctx context.Context, actor models.Actor, in ExpenseInput) (expense *models.Expense, err error) {
	defer func() { c.metrics.ObserveMutation("create_expense", err) }()

	now := c.timestamp()
	if err := in.normalize(actor, now); err != nil {
		return nil, err
	}
	if err := c.checkScope(ctx, actor, &in); err != nil {
		return nil, err
	}
	splits, err := buildSplits(&in)
	if err != nil {
		return nil, err
	}

	expense = &models.Expense{
		Scope:       models.ScopeOf(in.GroupID),
		PaidByID:    in.PaidByID,
		Description: in.Description,
		Amount:      in.Amount,
		Currency:    in.Currency,
		SplitType:   in.SplitType,
		Date:        in.Date,
		Notes:       in.Notes,
		Splits:      splits,
		TagIDs:      in.TagIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var activity *models.Activity
	err = c.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := checkTags(ctx, tx, in.TagIDs); err != nil {
			return err
		}
		if err := tx.CreateExpense(ctx, expense); err != nil {
			return err
		}
		activity = &models.Activity{
			ActorID:   actor.UserID,
			Scope:     expense.Scope,
			Type:      models.ActivityExpenseCreated,
			ExpenseID: expense.ID,
			Action:    displayName(actor) + " added \"" + expense.Description + "\" (" + expense.Amount.StringFixed(2) + " " + expense.Currency + ")",
			Metadata:  expenseMetadata(expense),
			CreatedAt: now,
		}
		return tx.AppendActivity(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Expense created",
		"expense_id", expense.ID, "paid_by_id", expense.PaidByID, "amount", expense.Amount.StringFixed(2))
	c.commit(ctx, activity, splitRecipients(expense))
	return expense, nil
}

// UpdateExpense replaces the content of an expense and recomputes its
// splits. Expenses with any settled split cannot be changed.
func (c *Coordinator) UpdateExpense(ctx context.Context, actor models.Actor, expenseID string, in ExpenseInput) (expense *models.Expense, err error) {
	defer func() { c.metrics.ObserveMutation("update_expense", err) }()

	existing, err := c.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	ok, err := c.canManage(ctx, actor, existing.PaidByID, existing.Scope)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.Authorization, "only the payer or a group admin may edit this expense")
	}

	now := c.timestamp()
	if in.PaidByID == "" {
		in.PaidByID = existing.PaidByID
	}
	if err := in.normalize(actor, now); err != nil {
		return nil, err
	}
	if err := c.checkScope(ctx, actor, &in); err != nil {
		return nil, err
	}
	splits, err := buildSplits(&in)
	if err != nil {
		return nil, err
	}

	var activity *models.Activity
	err = c.store.WithTx(ctx, func(tx storage.Tx) error {
		current, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if current.HasPayments() {
			return errs.New(errs.Conflict, "expense has paid splits and cannot be changed")
		}
		if err := checkTags(ctx, tx, in.TagIDs); err != nil {
			return err
		}

		expense = &models.Expense{
			ID:          current.ID,
			Scope:       models.ScopeOf(in.GroupID),
			PaidByID:    in.PaidByID,
			Description: in.Description,
			Amount:      in.Amount,
			Currency:    in.Currency,
			SplitType:   in.SplitType,
			Date:        in.Date,
			Notes:       in.Notes,
			Splits:      splits,
			TagIDs:      in.TagIDs,
			CreatedAt:   current.CreatedAt,
			UpdatedAt:   now,
		}
		if err := tx.UpdateExpense(ctx, expense); err != nil {
			return err
		}

		metadata := expenseMetadata(expense)
		metadata["previous_amount"] = current.Amount.StringFixed(2)
		metadata["previous_description"] = current.Description
		activity = &models.Activity{
			ActorID:   actor.UserID,
			Scope:     expense.Scope,
			Type:      models.ActivityExpenseUpdated,
			ExpenseID: expense.ID,
			Action:    displayName(actor) + " updated \"" + expense.Description + "\"",
			Metadata:  metadata,
			CreatedAt: now,
		}
		return tx.AppendActivity(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Expense updated", "expense_id", expense.ID)
	c.commit(ctx, activity, append(splitRecipients(existing), splitRecipients(expense)...))
	return expense, nil
}

// DeleteExpense removes an expense and its splits, logging EXPENSE_DELETED.
func (c *Coordinator) DeleteExpense(ctx context.Context, actor models.Actor, expenseID string) (err error) {
	defer func() { c.metrics.ObserveMutation("delete_expense", err) }()

	existing, err := c.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	ok, err := c.canManage(ctx, actor, existing.PaidByID, existing.Scope)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Authorization, "only the payer or a group admin may delete this expense")
	}

	now := c.timestamp()
	var activity *models.Activity
	err = c.store.WithTx(ctx, func(tx storage.Tx) error {
		current, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if err := tx.DeleteExpense(ctx, expenseID); err != nil {
			return err
		}
		activity = &models.Activity{
			ActorID:   actor.UserID,
			Scope:     current.Scope,
			Type:      models.ActivityExpenseDeleted,
			ExpenseID: current.ID,
			Action:    displayName(actor) + " deleted \"" + current.Description + "\"",
			Metadata:  expenseMetadata(current),
			CreatedAt: now,
		}
		return tx.AppendActivity(ctx, activity)
	})
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Expense deleted", "expense_id", expenseID)
	c.commit(ctx, activity, splitRecipients(existing))
	return nil
}

// GetExpense returns an expense the actor takes part in or whose group
// the actor belongs to.
func (c *Coordinator) GetExpense(ctx context.Context, actor models.Actor, expenseID string) (*models.Expense, error) {
	expense, err := c.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.HasParticipant(actor.UserID) {
		return expense, nil
	}
	if groupID, ok := models.GroupIDOf(expense.Scope); ok {
		if err := requireMember(ctx, c.members, actor.UserID, groupID); err != nil {
			return nil, err
		}
		return expense, nil
	}
	return nil, errs.New(errs.Authorization, "expense is not visible to this user")
}
