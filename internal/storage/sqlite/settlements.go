package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const settlementColumns = `id, group_id, paid_by_id, paid_to_id, amount, method, status, note, created_at, settled_at`

// CreateSettlement persists a new settlement to the database.
func (t *sqliteTx) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	// Generate ID if not set
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt.IsZero() {
		settlement.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if settlement.Scope == nil {
		settlement.Scope = models.Personal{}
	}

	groupID, _ := models.GroupIDOf(settlement.Scope)
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO settlements (`+settlementColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, stringOrNull(groupID), settlement.PaidByID, settlement.PaidToID,
		settlement.Amount.String(), settlement.Method.String(), settlement.Status.String(),
		stringOrNull(settlement.Note), settlement.CreatedAt.Unix(), unixOrNull(settlement.SettledAt),
	)
	if err != nil {
		return classify(err, "failed to insert settlement")
	}

	return nil
}

// UpdateSettlementStatus moves a settlement to a new status.
func (t *sqliteTx) UpdateSettlementStatus(ctx context.Context, settlementID string, status models.SettlementStatus, settledAt *time.Time) error {
	result, err := t.q.ExecContext(ctx,
		"UPDATE settlements SET status = ?, settled_at = ? WHERE id = ?",
		status.String(), unixOrNull(settledAt), settlementID,
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated settlement: %w", err)
	}
	if n == 0 {
		return errs.Newf(errs.NotFound, "settlement not found: %s", settlementID)
	}
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (r reader) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE id = ?",
		settlementID,
	)
	settlement, err := scanSettlement(row)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.NotFound, "settlement not found: %s", settlementID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// ListSettlements retrieves a page of settlements matching filter, newest first.
func (r reader) ListSettlements(ctx context.Context, filter storage.SettlementFilter) (*storage.SettlementPage, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		if filter.CounterpartyID != "" {
			where = append(where, "((paid_by_id = ? AND paid_to_id = ?) OR (paid_by_id = ? AND paid_to_id = ?))")
			args = append(args, filter.UserID, filter.CounterpartyID, filter.CounterpartyID, filter.UserID)
		} else {
			where = append(where, "(paid_by_id = ? OR paid_to_id = ?)")
			args = append(args, filter.UserID, filter.UserID)
		}
	}
	if filter.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.Status != models.StatusUnknown {
		where = append(where, "status = ?")
		args = append(args, filter.Status.String())
	}
	if filter.Method != models.MethodUnknown {
		where = append(where, "method = ?")
		args = append(args, filter.Method.String())
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.From.Unix())
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, filter.To.Unix())
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	// Amounts are exact decimal text, so totals are summed here rather than in SQL.
	page := &storage.SettlementPage{TotalAmount: decimal.Zero}
	amountRows, err := r.q.QueryContext(ctx, "SELECT amount FROM settlements"+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count settlements: %w", err)
	}
	for amountRows.Next() {
		var amount decimal.Decimal
		if err := amountRows.Scan(&amount); err != nil {
			amountRows.Close()
			return nil, fmt.Errorf("failed to scan settlement amount: %w", err)
		}
		page.Total++
		page.TotalAmount = page.TotalAmount.Add(amount)
	}
	amountRows.Close()
	if err := amountRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement amounts: %w", err)
	}

	query := "SELECT " + settlementColumns + " FROM settlements" + clause + " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		page.Settlements = append(page.Settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return page, nil
}

func scanSettlement(row rowScanner) (*models.Settlement, error) {
	var (
		settlement models.Settlement
		groupID    sql.NullString
		note       sql.NullString
		method     string
		status     string
		createdAt  int64
		settledAt  sql.NullInt64
	)
	if err := row.Scan(&settlement.ID, &groupID, &settlement.PaidByID, &settlement.PaidToID,
		&settlement.Amount, &method, &status, &note, &createdAt, &settledAt); err != nil {
		return nil, err
	}

	m, err := models.ParseSettlementMethod(method)
	if err != nil {
		return nil, fmt.Errorf("settlement %s: %w", settlement.ID, err)
	}
	st, err := models.ParseSettlementStatus(status)
	if err != nil {
		return nil, fmt.Errorf("settlement %s: %w", settlement.ID, err)
	}
	settlement.Method = m
	settlement.Status = st
	settlement.Scope = models.ScopeOf(groupID.String)
	settlement.Note = note.String
	settlement.CreatedAt = time.Unix(createdAt, 0).UTC()
	settlement.SettledAt = timeFromNull(settledAt)
	return &settlement, nil
}
