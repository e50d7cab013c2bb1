// internal/app/store/contributions/contributionstore.go
package contributionstore

import (
	"context"
	"time"

	"github.com/dalemusser/alcancia/internal/app/store/docstore"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "contributions"

// Store is append-only: there is no update and no single-row delete.
type Store struct {
	c *docstore.Collection[models.Contribution]
}

func New(db *mongo.Database) *Store {
	return &Store{c: docstore.NewCollection[models.Contribution](db, Collection)}
}

func (s *Store) Create(ctx context.Context, c models.Contribution) (models.Contribution, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := s.c.Create(ctx, c); err != nil {
		return models.Contribution{}, err
	}
	return c, nil
}

// ListByGoal returns a goal's contributions in insertion order (oldest first).
func (s *Store) ListByGoal(ctx context.Context, groupGoalID string) ([]models.Contribution, error) {
	return s.c.List(ctx, bson.M{"group_goal_id": groupGoalID}, docstore.ListOptions{
		Sort: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
	})
}

// CountByGoal returns how many contributions a goal has received.
func (s *Store) CountByGoal(ctx context.Context, groupGoalID string) (int64, error) {
	return s.c.Count(ctx, bson.M{"group_goal_id": groupGoalID})
}
