// internal/app/store/memberships/membershipstore.go
package membershipstore

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

const Collection = "group_memberships"

// ErrAlreadyMember is returned when (group_id, user_id) already exists.
var ErrAlreadyMember = apperr.New(apperr.KindAlreadyMember, "user is already a member of this group")

type Store struct {
	c *docstore.Collection[models.GroupMembership]
}

func New(db *mongo.Database) *Store {
	return &Store{c: docstore.NewCollection[models.GroupMembership](db, Collection)}
}

// Add creates a membership with the given role.
func (s *Store) Add(ctx context.Context, groupID, userID, role string, joinedAt time.Time) (models.GroupMembership, error) {
	if !models.IsValidRole(role) {
		return models.GroupMembership{}, apperr.New(apperr.KindValidation, "invalid role %q", role)
	}
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	m := models.GroupMembership{
		ID:       uuid.NewString(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: joinedAt,
	}
	if err := s.c.Create(ctx, m); err != nil {
		if docstore.IsDuplicate(err) {
			return models.GroupMembership{}, ErrAlreadyMember
		}
		return models.GroupMembership{}, err
	}
	return m, nil
}

// Get returns the membership of userID in groupID.
func (s *Store) Get(ctx context.Context, groupID, userID string) (models.GroupMembership, error) {
	m, err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if docstore.IsNotFound(err) {
		return models.GroupMembership{}, apperr.New(apperr.KindNotFound, "user %s is not a member of group %s", userID, groupID)
	}
	return m, err
}

// Remove deletes the membership, if any.
func (s *Store) Remove(ctx context.Context, groupID, userID string) error {
	_, err := s.c.DeleteWhere(ctx, bson.M{"group_id": groupID, "user_id": userID})
	return err
}

// ListByGroup returns a group's memberships in join order.
func (s *Store) ListByGroup(ctx context.Context, groupID string) ([]models.GroupMembership, error) {
	return s.c.List(ctx, bson.M{"group_id": groupID}, docstore.ListOptions{
		Sort: bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}},
	})
}

// ListByUser returns every membership held by userID.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]models.GroupMembership, error) {
	return s.c.List(ctx, bson.M{"user_id": userID}, docstore.ListOptions{
		Sort: bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}},
	})
}

// SetRole changes the role of an existing membership.
func (s *Store) SetRole(ctx context.Context, groupID, userID, role string) error {
	if !models.IsValidRole(role) {
		return apperr.New(apperr.KindValidation, "invalid role %q", role)
	}
	ok, err := s.c.UpdateWhere(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role}},
	)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.KindNotFound, "user %s is not a member of group %s", userID, groupID)
	}
	return nil
}

// CountByRole returns how many members of groupID hold role.
func (s *Store) CountByRole(ctx context.Context, groupID, role string) (int64, error) {
	return s.c.Count(ctx, bson.M{"group_id": groupID, "role": role})
}
