// internal/domain/models/invitation.go
package models

import "time"

// Invitation statuses. Pendiente is the only non-terminal state.
const (
	InvitationPendiente = "pendiente"
	InvitationAceptada  = "aceptada"
	InvitationRechazada = "rechazada"
	InvitationExpirada  = "expirada"
)

// Invitation is a time-boxed offer for a user to join a group.
// At most one pendiente invitation exists per (group_id, invited_user_id).
type Invitation struct {
	ID              string     `bson:"_id" json:"id"`
	GroupID         string     `bson:"group_id" json:"group_id"`
	InvitedByUserID string     `bson:"invited_by_user_id" json:"invited_by_user_id"`
	InvitedUserID   string     `bson:"invited_user_id" json:"invited_user_id"`
	Status          string     `bson:"status" json:"status"`
	ExpiresAt       time.Time  `bson:"expires_at" json:"expires_at"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
	ResolvedAt      *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// ExpiredAt reports whether the invitation is past its expiry at now.
func (i Invitation) ExpiredAt(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}
