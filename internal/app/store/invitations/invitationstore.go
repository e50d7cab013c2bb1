// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"time"

	"github.com/dalemusser/alcancia/internal/app/store/docstore"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "invitations"

// ErrAlreadyPending is returned when the partial unique index on pending
// (group_id, invited_user_id) rejects an insert.
var ErrAlreadyPending = apperr.New(apperr.KindInvitationAlreadyPending, "user already has a pending invitation to this group")

type Store struct {
	c *docstore.Collection[models.Invitation]
}

func New(db *mongo.Database) *Store {
	return &Store{c: docstore.NewCollection[models.Invitation](db, Collection)}
}

func (s *Store) Create(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if err := s.c.Create(ctx, inv); err != nil {
		if docstore.IsDuplicate(err) {
			return models.Invitation{}, ErrAlreadyPending
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Invitation, error) {
	inv, err := s.c.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return models.Invitation{}, apperr.New(apperr.KindNotFound, "invitation %s not found", id)
	}
	return inv, err
}

// FindPending returns the pendiente invitation for (groupID, userID), if any.
func (s *Store) FindPending(ctx context.Context, groupID, userID string) (models.Invitation, bool, error) {
	inv, err := s.c.FindOne(ctx, bson.M{
		"group_id":        groupID,
		"invited_user_id": userID,
		"status":          models.InvitationPendiente,
	})
	if docstore.IsNotFound(err) {
		return models.Invitation{}, false, nil
	}
	if err != nil {
		return models.Invitation{}, false, err
	}
	return inv, true, nil
}

// ListByInvitedUser returns a user's invitations in the given status, newest first.
func (s *Store) ListByInvitedUser(ctx context.Context, userID, status string) ([]models.Invitation, error) {
	return s.c.List(ctx, bson.M{"invited_user_id": userID, "status": status}, docstore.ListOptions{
		Sort: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
	})
}

// Transition moves an invitation from one status to another only if it is
// still in from. It reports whether this call performed the transition.
func (s *Store) Transition(ctx context.Context, id, from, to string, at time.Time) (bool, error) {
	set := bson.M{"status": to}
	if to == models.InvitationPendiente {
		return s.c.UpdateWhere(ctx,
			bson.M{"_id": id, "status": from},
			bson.M{"$set": set, "$unset": bson.M{"resolved_at": ""}},
		)
	}
	set["resolved_at"] = at
	return s.c.UpdateWhere(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
}
