// internal/app/store/goals/goalstore.go
package goalstore

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

const Collection = "goals"

type Store struct {
	c *docstore.Collection[models.Goal]
}

func New(db *mongo.Database) *Store {
	return &Store{c: docstore.NewCollection[models.Goal](db, Collection)}
}

func (s *Store) Create(ctx context.Context, g models.Goal) (models.Goal, error) {
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
		return models.Goal{}, err
	}
	return g, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Goal, error) {
	g, err := s.c.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return models.Goal{}, apperr.New(apperr.KindNotFound, "goal %s not found", id)
	}
	return g, err
}

// ListByOwner returns a user's goals, oldest first.
func (s *Store) ListByOwner(ctx context.Context, userID string) ([]models.Goal, error) {
	return s.c.List(ctx, bson.M{"owner_user_id": userID}, docstore.ListOptions{
		Sort: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
	})
}

// SetProgress writes current/completed if g.Version is still current.
func (s *Store) SetProgress(ctx context.Context, g models.Goal, current money.Amount, completed bool) (models.Goal, error) {
	now := time.Now().UTC()
	ok, err := s.c.UpdateWhere(ctx,
		bson.M{"_id": g.ID, "version": g.Version},
		bson.M{
			"$set": bson.M{"current_amount": current, "completed": completed, "updated_at": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return models.Goal{}, err
	}
	if !ok {
		return models.Goal{}, docstore.ErrVersionConflict
	}
	g.CurrentAmount = current
	g.Completed = completed
	g.Version++
	g.UpdatedAt = now
	return g, nil
}

// DeleteIfUnchanged removes the goal only if nobody wrote to it since g was read.
func (s *Store) DeleteIfUnchanged(ctx context.Context, g models.Goal) error {
	ok, err := s.c.DeleteWhere(ctx, bson.M{"_id": g.ID, "version": g.Version})
	if err != nil {
		return err
	}
	if !ok {
		return docstore.ErrVersionConflict
	}
	return nil
}
