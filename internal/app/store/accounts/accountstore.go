// internal/app/store/accounts/accountstore.go
package accountstore

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

// Collection is the Mongo collection name for accounts.
const Collection = "accounts"

var ErrAccountExists = apperr.New(apperr.KindAlreadyExists, "user already has an account")

type Store struct {
	c *docstore.Collection[models.Account]
}

func New(db *mongo.Database) *Store {
	return &Store{c: docstore.NewCollection[models.Account](db, Collection)}
}

// Create inserts a new account. Balance starts at whatever a carries
// (normally zero); the version counter starts at 1.
func (s *Store) Create(ctx context.Context, a models.Account) (models.Account, error) {
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Version = 1
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt
	if err := s.c.Create(ctx, a); err != nil {
		if docstore.IsDuplicate(err) {
			return models.Account{}, ErrAccountExists
		}
		return models.Account{}, err
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Account, error) {
	a, err := s.c.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return models.Account{}, apperr.New(apperr.KindNotFound, "account %s not found", id)
	}
	return a, err
}

// GetByOwner returns the single account belonging to userID.
func (s *Store) GetByOwner(ctx context.Context, userID string) (models.Account, error) {
	a, err := s.c.FindOne(ctx, bson.M{"owner_user_id": userID})
	if docstore.IsNotFound(err) {
		return models.Account{}, apperr.New(apperr.KindNotFound, "no account for user %s", userID)
	}
	return a, err
}

// SetBalance writes a new balance if the stored version still equals
// a.Version. A stale version yields docstore.ErrVersionConflict.
func (s *Store) SetBalance(ctx context.Context, a models.Account, balance money.Amount) (models.Account, error) {
	now := time.Now().UTC()
	ok, err := s.c.UpdateWhere(ctx,
		bson.M{"_id": a.ID, "version": a.Version},
		bson.M{
			"$set": bson.M{"balance": balance, "updated_at": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return models.Account{}, err
	}
	if !ok {
		return models.Account{}, docstore.ErrVersionConflict
	}
	a.Balance = balance
	a.Version++
	a.UpdatedAt = now
	return a, nil
}
