// internal/app/store/groupgoals/groupgoalstore.go
package groupgoalstore

import (
	"context"
	"time"

	"github.com/dalemusser/alcancia/internal/app/store/docstore"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "group_goals"

type Store struct {
	c *docstore.Collection[models.GroupGoal]
}

func New(db *mongo.Database) *Store {
	return &Store{c: docstore.NewCollection[models.GroupGoal](db, Collection)}
}

func (s *Store) Create(ctx context.Context, g models.GroupGoal) (models.GroupGoal, error) {
	now := time.Now().UTC()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.Version = 1
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = g.CreatedAt
	if err := s.c.Create(ctx, g); err != nil {
		return models.GroupGoal{}, err
	}
	return g, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.GroupGoal, error) {
	g, err := s.c.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return models.GroupGoal{}, apperr.New(apperr.KindNotFound, "group goal %s not found", id)
	}
	return g, err
}

// ListByGroup returns a group's goals, oldest first.
func (s *Store) ListByGroup(ctx context.Context, groupID string) ([]models.GroupGoal, error) {
	return s.c.List(ctx, bson.M{"group_id": groupID}, docstore.ListOptions{
		Sort: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
	})
}

// SetProgress writes current/completed if g.Version is still current.
func (s *Store) SetProgress(ctx context.Context, g models.GroupGoal, current money.Amount, completed bool) (models.GroupGoal, error) {
	now := time.Now().UTC()
	ok, err := s.c.UpdateWhere(ctx,
		bson.M{"_id": g.ID, "version": g.Version},
		bson.M{
			"$set": bson.M{"current_amount": current, "completed": completed, "updated_at": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return models.GroupGoal{}, err
	}
	if !ok {
		return models.GroupGoal{}, docstore.ErrVersionConflict
	}
	g.CurrentAmount = current
	g.Completed = completed
	g.Version++
	g.UpdatedAt = now
	return g, nil
}

// DeleteIfUnchanged removes the goal only if nobody wrote to it since g was read.
func (s *Store) DeleteIfUnchanged(ctx context.Context, g models.GroupGoal) error {
	ok, err := s.c.DeleteWhere(ctx, bson.M{"_id": g.ID, "version": g.Version})
	if err != nil {
		return err
	}
	if !ok {
		return docstore.ErrVersionConflict
	}
	return nil
}
