package models

import "time"

// GroupRole is a member's role inside a group.
type GroupRole string

const (
	RoleOwner  GroupRole = "OWNER"
	RoleAdmin  GroupRole = "ADMIN"
	RoleMember GroupRole = "MEMBER"
)

// CanManage reports whether the role may edit other members' expenses.
func (r GroupRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Group is a set of members sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string

	// OwnerID is the user who created the group.
	OwnerID string

	// IsActive is false once the group is archived.
	IsActive bool

	CreatedAt time.Time
}

// GroupMember links a user to a group.
type GroupMember struct {
	GroupID  string
	UserID   string
	Role     GroupRole
	IsActive bool
	JoinedAt time.Time
}
