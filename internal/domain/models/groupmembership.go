// internal/domain/models/groupmembership.go
package models

import "time"

// Membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// GroupMembership is the authoritative join between users and groups.
// Exactly one document per (group_id, user_id); role is a scalar ("admin"|"member").
type GroupMembership struct {
	ID       string    `bson:"_id" json:"id"`
	GroupID  string    `bson:"group_id" json:"group_id"`
	UserID   string    `bson:"user_id" json:"user_id"`
	Role     string    `bson:"role" json:"role"`
	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}

// IsValidRole reports whether role is admin or member.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
