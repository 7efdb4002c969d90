package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// AppendActivity adds an entry to the append-only activity log.
func (t *sqliteTx) AppendActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if activity.Metadata == nil {
		activity.Metadata = map[string]any{}
	}

	metadata, err := json.Marshal(activity.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode activity metadata: %w", err)
	}

	groupID, _ := models.GroupIDOf(activity.Scope)
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO activities (id, actor_id, group_id, type, expense_id, settlement_id, action, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		activity.ID, activity.ActorID, stringOrNull(groupID), string(activity.Type),
		stringOrNull(activity.ExpenseID), stringOrNull(activity.SettlementID),
		activity.Action, string(metadata), activity.CreatedAt.Unix(),
	)
	if err != nil {
		return classify(err, "failed to append activity")
	}
	return nil
}

// ListActivity retrieves activity entries, newest first.
func (r reader) ListActivity(ctx context.Context, filter storage.ActivityFilter) ([]*models.Activity, error) {
	query := `SELECT id, actor_id, group_id, type, expense_id, settlement_id, action, metadata, created_at
		FROM activities WHERE 1 = 1`
	var args []any
	if filter.UserID != "" {
		query += " AND actor_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.GroupID != "" {
		query += " AND group_id = ?"
		args = append(args, filter.GroupID)
	}
	query += " ORDER BY seq DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		var (
			activity     models.Activity
			groupID      sql.NullString
			expenseID    sql.NullString
			settlementID sql.NullString
			typ          string
			metadata     string
			createdAt    int64
		)
		if err := rows.Scan(&activity.ID, &activity.ActorID, &groupID, &typ, &expenseID,
			&settlementID, &activity.Action, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &activity.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode activity metadata: %w", err)
		}
		activity.Type = models.ActivityType(typ)
		activity.Scope = models.ScopeOf(groupID.String)
		activity.ExpenseID = expenseID.String
		activity.SettlementID = settlementID.String
		activity.CreatedAt = time.Unix(createdAt, 0).UTC()
		activities = append(activities, &activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return activities, nil
}
