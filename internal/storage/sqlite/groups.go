package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
)

// CreateGroup persists a new group and adds its owner as an active member.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	group.IsActive = true

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, owner_id, is_active, created_at) VALUES (?, ?, ?, 1, ?)",
		group.ID, group.Name, group.OwnerID, group.CreatedAt.Unix(),
	)
	if err != nil {
		return classify(err, "failed to insert group")
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, role, is_active, joined_at) VALUES (?, ?, ?, 1, ?)",
		group.ID, group.OwnerID, string(models.RoleOwner), group.CreatedAt.Unix(),
	)
	if err != nil {
		return classify(err, "failed to insert group owner")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AddGroupMember adds a user to a group, or reactivates a former member.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID string, role models.GroupRole) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, is_active, joined_at) VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT (group_id, user_id) DO UPDATE SET is_active = 1, role = excluded.role`,
		groupID, userID, string(role), time.Now().Unix(),
	)
	if err != nil {
		return classify(err, "failed to add group member")
	}
	return nil
}

// DeactivateGroupMember marks a member as having left the group.
func (s *SQLiteStore) DeactivateGroupMember(ctx context.Context, groupID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE group_members SET is_active = 0 WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate group member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivated member: %w", err)
	}
	if n == 0 {
		return errs.Newf(errs.NotFound, "user %s is not a member of group %s", userID, groupID)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, owner_id, is_active, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.OwnerID, &group.IsActive, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.NotFound, "group not found: %s", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.CreatedAt = time.Unix(createdAt, 0).UTC()
	return group, nil
}

// IsActiveMember reports whether userID is an active member of an active group.
func (s *SQLiteStore) IsActiveMember(ctx context.Context, userID, groupID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM group_members m JOIN groups g ON g.id = m.group_id
		 WHERE m.group_id = ? AND m.user_id = ? AND m.is_active = 1 AND g.is_active = 1`,
		groupID, userID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return true, nil
}

// ListActiveMembers returns the ids of a group's active members.
func (s *SQLiteStore) ListActiveMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ? AND is_active = 1 ORDER BY user_id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}

// MemberRole returns userID's role in an active group, or "" when the user
// is not an active member.
func (s *SQLiteStore) MemberRole(ctx context.Context, userID, groupID string) (models.GroupRole, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT m.role FROM group_members m JOIN groups g ON g.id = m.group_id
		 WHERE m.group_id = ? AND m.user_id = ? AND m.is_active = 1 AND g.is_active = 1`,
		groupID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get member role: %w", err)
	}
	return models.GroupRole(role), nil
}
