// internal/app/store/transactions/transactionstore.go
package transactionstore

import (
	"context"
	"time"

	"github.com/dalemusser/alcancia/internal/app/store/docstore"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "transactions"

type Store struct {
	c *docstore.Collection[models.Transaction]
}

func New(db *mongo.Database) *Store {
	return &Store{c: docstore.NewCollection[models.Transaction](db, Collection)}
}

// Create inserts an immutable transaction record.
func (s *Store) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if err := s.c.Create(ctx, t); err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

// ListByAccount returns the newest transactions first. limit <= 0 means all.
func (s *Store) ListByAccount(ctx context.Context, accountID string, limit int64) ([]models.Transaction, error) {
	return s.c.List(ctx, bson.M{"account_id": accountID}, docstore.ListOptions{
		Sort:  bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		Limit: limit,
	})
}
