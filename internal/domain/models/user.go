// internal/domain/models/user.go
package models

import "time"

// User is an account holder. Tag is the unique '@'-prefixed handle other
// users search for when sending group invitations.
//
// NOTE:
//   - Credentials live with the external identity provider; ID is the
//     subject the gateway forwards on every request.
type User struct {
	ID    string `bson:"_id" json:"id"`
	Tag   string `bson:"tag" json:"tag"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
