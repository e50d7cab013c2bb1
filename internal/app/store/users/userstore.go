// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/alcancia/internal/app/store/docstore"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "users"

var (
	ErrDuplicateTag = apperr.New(apperr.KindAlreadyExists, "user tag already taken")
	ErrUserExists   = apperr.New(apperr.KindAlreadyExists, "user already registered")
)

type Store struct {
	c *docstore.Collection[models.User]
}

func New(db *mongo.Database) *Store {
	return &Store{c: docstore.NewCollection[models.User](db, Collection)}
}

// Create inserts a user. The tag must already be allocated by the caller.
// A duplicate _id maps to ErrUserExists, anything else duplicate to ErrDuplicateTag.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if err := s.c.Create(ctx, u); err != nil {
		if docstore.IsDuplicate(err) {
			if exists, xerr := s.c.Exists(ctx, bson.M{"_id": u.ID}); xerr == nil && exists {
				return models.User{}, ErrUserExists
			}
			return models.User{}, ErrDuplicateTag
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.User, error) {
	u, err := s.c.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return models.User{}, apperr.New(apperr.KindNotFound, "user %s not found", id)
	}
	return u, err
}

// GetByTag looks a user up by '@' handle, case-insensitively.
func (s *Store) GetByTag(ctx context.Context, tag string) (models.User, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if !strings.HasPrefix(tag, "@") {
		tag = "@" + tag
	}
	u, err := s.c.FindOne(ctx, bson.M{"tag": tag})
	if docstore.IsNotFound(err) {
		return models.User{}, apperr.New(apperr.KindNotFound, "no user with tag %s", tag)
	}
	return u, err
}

// TagExists reports whether tag is already taken.
func (s *Store) TagExists(ctx context.Context, tag string) (bool, error) {
	return s.c.Exists(ctx, bson.M{"tag": tag})
}

// GetByIDs returns the users with the given ids, keyed by id.
func (s *Store) GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := s.c.List(ctx, bson.M{"_id": bson.M{"$in": ids}}, docstore.ListOptions{})
	if err != nil {
		return nil, err
	}
	for _, u := range list {
		out[u.ID] = u
	}
	return out, nil
}
