package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const expenseColumns = `e.id, e.group_id, e.paid_by_id, e.description, e.amount, e.currency,
	e.split_type, e.date, e.notes, e.created_at, e.updated_at`

// GetExpense retrieves an expense by ID, including splits and tags.
func (r reader) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expenses, err := r.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses e WHERE e.id = ?",
		expenseID,
	)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, errs.Newf(errs.NotFound, "expense not found: %s", expenseID)
	}

	expense := expenses[0]
	rows, err := r.q.QueryContext(ctx,
		"SELECT tag_id FROM expense_tags WHERE expense_id = ? ORDER BY tag_id",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return nil, fmt.Errorf("failed to scan expense tag: %w", err)
		}
		expense.TagIDs = append(expense.TagIDs, tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense tags: %w", err)
	}

	return expense, nil
}

// ListExpenses retrieves expenses paid by the user or holding one of their splits.
func (r reader) ListExpenses(ctx context.Context, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	query := "SELECT " + expenseColumns + ` FROM expenses e
		WHERE (e.paid_by_id = ? OR EXISTS (
			SELECT 1 FROM splits s WHERE s.expense_id = e.id AND s.user_id = ?))`
	args := []any{filter.UserID, filter.UserID}
	if filter.GroupID != "" {
		query += " AND e.group_id = ?"
		args = append(args, filter.GroupID)
	}
	query += " ORDER BY e.date, e.rowid"

	return r.queryExpenses(ctx, query, args...)
}

// ListGroupExpenses retrieves every expense of a group.
func (r reader) ListGroupExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return r.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses e WHERE e.group_id = ? ORDER BY e.date, e.rowid",
		groupID,
	)
}

// ListPairExpenses retrieves expenses linking userA and userB as payer and split owner.
func (r reader) ListPairExpenses(ctx context.Context, userA, userB, groupID string) ([]*models.Expense, error) {
	query := "SELECT " + expenseColumns + ` FROM expenses e
		WHERE ((e.paid_by_id = ? AND EXISTS (
				SELECT 1 FROM splits s WHERE s.expense_id = e.id AND s.user_id = ?))
			OR (e.paid_by_id = ? AND EXISTS (
				SELECT 1 FROM splits s WHERE s.expense_id = e.id AND s.user_id = ?)))`
	args := []any{userA, userB, userB, userA}
	if groupID != "" {
		query += " AND e.group_id = ?"
		args = append(args, groupID)
	}
	query += " ORDER BY e.date, e.rowid"

	return r.queryExpenses(ctx, query, args...)
}

// queryExpenses runs an expense query and attaches every expense's splits.
func (r reader) queryExpenses(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
		byID[expense.ID] = expense
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	if len(expenses) == 0 {
		return expenses, nil
	}
	if err := r.attachSplits(ctx, byID); err != nil {
		return nil, err
	}
	return expenses, nil
}

// splitBatchSize bounds the bound variables of one split lookup well below
// SQLite's limit.
const splitBatchSize = 500

// attachSplits loads the splits of every expense in byID, in batches.
func (r reader) attachSplits(ctx context.Context, byID map[string]*models.Expense) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	for start := 0; start < len(ids); start += splitBatchSize {
		end := min(start+splitBatchSize, len(ids))
		if err := r.attachSplitBatch(ctx, byID, ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r reader) attachSplitBatch(ctx context.Context, byID map[string]*models.Expense, ids []string) error {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, expense_id, user_id, amount, percentage, shares, settled_amount, is_settled, settled_at
		 FROM splits WHERE expense_id IN (`+placeholders(len(ids))+`)
		 ORDER BY expense_id, position`,
		stringArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			split     models.Split
			settledAt sql.NullInt64
		)
		if err := rows.Scan(&split.ID, &split.ExpenseID, &split.UserID, &split.Amount,
			&split.Percentage, &split.Shares, &split.SettledAmount, &split.IsSettled, &settledAt); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		split.SettledAt = timeFromNull(settledAt)
		expense := byID[split.ExpenseID]
		expense.Splits = append(expense.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate splits: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		expense   models.Expense
		groupID   sql.NullString
		notes     sql.NullString
		splitType string
		date      int64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&expense.ID, &groupID, &expense.PaidByID, &expense.Description,
		&expense.Amount, &expense.Currency, &splitType, &date, &notes, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	st, err := models.ParseSplitType(splitType)
	if err != nil {
		return nil, fmt.Errorf("expense %s: %w", expense.ID, err)
	}
	expense.SplitType = st
	expense.Scope = models.ScopeOf(groupID.String)
	expense.Notes = notes.String
	expense.Date = time.Unix(date, 0).UTC()
	expense.CreatedAt = time.Unix(createdAt, 0).UTC()
	expense.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &expense, nil
}

// CreateExpense persists a new expense with its splits and tag links.
func (t *sqliteTx) CreateExpense(ctx context.Context, expense *models.Expense) error {
	// Generate IDs if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().UTC().Truncate(time.Second)
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = expense.CreatedAt
	if expense.Date.IsZero() {
		expense.Date = now
	}
	if expense.Scope == nil {
		expense.Scope = models.Personal{}
	}

	groupID, _ := models.GroupIDOf(expense.Scope)
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, paid_by_id, description, amount, currency,
			split_type, date, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, stringOrNull(groupID), expense.PaidByID, expense.Description,
		expense.Amount.String(), expense.Currency, expense.SplitType.String(),
		expense.Date.Unix(), stringOrNull(expense.Notes),
		expense.CreatedAt.Unix(), expense.UpdatedAt.Unix(),
	)
	if err != nil {
		return classify(err, "failed to insert expense")
	}

	return t.insertChildren(ctx, expense)
}

// UpdateExpense rewrites an expense and replaces its splits and tag links.
func (t *sqliteTx) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	expense.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	if expense.Scope == nil {
		expense.Scope = models.Personal{}
	}

	groupID, _ := models.GroupIDOf(expense.Scope)
	result, err := t.q.ExecContext(ctx,
		`UPDATE expenses SET group_id = ?, paid_by_id = ?, description = ?, amount = ?,
			currency = ?, split_type = ?, date = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		stringOrNull(groupID), expense.PaidByID, expense.Description, expense.Amount.String(),
		expense.Currency, expense.SplitType.String(), expense.Date.Unix(),
		stringOrNull(expense.Notes), expense.UpdatedAt.Unix(), expense.ID,
	)
	if err != nil {
		return classify(err, "failed to update expense")
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check updated expense: %w", err)
	} else if n == 0 {
		return errs.Newf(errs.NotFound, "expense not found: %s", expense.ID)
	}

	if _, err := t.q.ExecContext(ctx, "DELETE FROM splits WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to delete splits: %w", err)
	}
	if _, err := t.q.ExecContext(ctx, "DELETE FROM expense_tags WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to delete expense tags: %w", err)
	}

	return t.insertChildren(ctx, expense)
}

func (t *sqliteTx) insertChildren(ctx context.Context, expense *models.Expense) error {
	for i := range expense.Splits {
		split := &expense.Splits[i]
		if split.ID == "" {
			split.ID = uuid.New().String()
		}
		split.ExpenseID = expense.ID

		_, err := t.q.ExecContext(ctx,
			`INSERT INTO splits (id, expense_id, user_id, position, amount, percentage, shares, settled_amount, is_settled, settled_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			split.ID, split.ExpenseID, split.UserID, i, split.Amount.String(),
			nullDecimal(split.Percentage), nullDecimal(split.Shares),
			split.SettledAmount.String(), split.IsSettled, unixOrNull(split.SettledAt),
		)
		if err != nil {
			return classify(err, "failed to insert split")
		}
	}

	for _, tagID := range expense.TagIDs {
		_, err := t.q.ExecContext(ctx,
			"INSERT INTO expense_tags (expense_id, tag_id) VALUES (?, ?)",
			expense.ID, tagID,
		)
		if err != nil {
			return classify(err, "failed to insert expense tag")
		}
	}

	return nil
}

// DeleteExpense removes an expense and everything attached to it.
func (t *sqliteTx) DeleteExpense(ctx context.Context, expenseID string) error {
	// Children are deleted explicitly so the cascade does not depend on the
	// foreign_keys pragma.
	for _, stmt := range []string{
		"DELETE FROM splits WHERE expense_id = ?",
		"DELETE FROM expense_tags WHERE expense_id = ?",
		"DELETE FROM receipts WHERE expense_id = ?",
	} {
		if _, err := t.q.ExecContext(ctx, stmt, expenseID); err != nil {
			return fmt.Errorf("failed to delete expense children: %w", err)
		}
	}

	result, err := t.q.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted expense: %w", err)
	}
	if n == 0 {
		return errs.Newf(errs.NotFound, "expense not found: %s", expenseID)
	}
	return nil
}

// ApplySplitPayments pays down splits, settling those paid in full.
func (t *sqliteTx) ApplySplitPayments(ctx context.Context, payments []storage.SplitPayment, settledAt time.Time) error {
	for _, p := range payments {
		var (
			amount, paid decimal.Decimal
			settled      bool
		)
		err := t.q.QueryRowContext(ctx,
			"SELECT amount, settled_amount, is_settled FROM splits WHERE id = ?",
			p.SplitID,
		).Scan(&amount, &paid, &settled)
		if err == sql.ErrNoRows {
			return errs.Newf(errs.NotFound, "split not found: %s", p.SplitID)
		}
		if err != nil {
			return fmt.Errorf("failed to get split: %w", err)
		}

		paid = paid.Add(p.Amount)
		if settled || !p.Amount.IsPositive() || paid.GreaterThan(amount) {
			return errs.Newf(errs.Conflict, "payment of %s does not fit split %s", p.Amount, p.SplitID)
		}

		full := paid.Equal(amount)
		var at *time.Time
		if full {
			at = &settledAt
		}
		_, err = t.q.ExecContext(ctx,
			"UPDATE splits SET settled_amount = ?, is_settled = ?, settled_at = ? WHERE id = ?",
			paid.String(), full, unixOrNull(at), p.SplitID,
		)
		if err != nil {
			return fmt.Errorf("failed to apply split payment: %w", err)
		}
	}
	return nil
}

// MissingTag returns the first tag id that does not exist.
func (r reader) MissingTag(ctx context.Context, tagIDs []string) (string, error) {
	for _, id := range tagIDs {
		var exists int
		err := r.q.QueryRowContext(ctx, "SELECT 1 FROM tags WHERE id = ?", id).Scan(&exists)
		if err == sql.ErrNoRows {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check tag: %w", err)
		}
	}
	return "", nil
}

func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
