// internal/domain/models/group.go
package models

import "time"

// Group is a savings group. Tag is a 6-character upper-case code, unique
// across all groups, that users type to find the group.
//
// NOTE:
//   - Members are not embedded on Group.
//     All membership is stored in the group_memberships collection.
type Group struct {
	ID              string `bson:"_id" json:"id"`
	Name            string `bson:"name" json:"name"`
	Description     string `bson:"description,omitempty" json:"description,omitempty"`
	Tag             string `bson:"tag" json:"tag"`
	CreatedByUserID string `bson:"created_by_user_id" json:"created_by_user_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
