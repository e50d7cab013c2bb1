// internal/app/store/groups/groupstore.go
package groupstore

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

const Collection = "groups"

// ErrDuplicateTag is returned when the tag is already used by another group.
var ErrDuplicateTag = apperr.New(apperr.KindAlreadyExists, "a group with this tag already exists")

type Store struct {
	c *docstore.Collection[models.Group]
}

func New(db *mongo.Database) *Store {
	return &Store{c: docstore.NewCollection[models.Group](db, Collection)}
}

// Create inserts a new group. Tag is stored upper-case.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.Name = strings.TrimSpace(g.Name)
	g.Tag = strings.ToUpper(strings.TrimSpace(g.Tag))
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = g.CreatedAt
	if err := s.c.Create(ctx, g); err != nil {
		if docstore.IsDuplicate(err) {
			return models.Group{}, ErrDuplicateTag
		}
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Group, error) {
	g, err := s.c.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return models.Group{}, apperr.New(apperr.KindNotFound, "group %s not found", id)
	}
	return g, err
}

// GetByTag looks a group up by tag, case-insensitively.
func (s *Store) GetByTag(ctx context.Context, tag string) (models.Group, error) {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	g, err := s.c.FindOne(ctx, bson.M{"tag": tag})
	if docstore.IsNotFound(err) {
		return models.Group{}, apperr.New(apperr.KindNotFound, "no group with tag %s", tag)
	}
	return g, err
}

// TagExists reports whether tag is already taken.
func (s *Store) TagExists(ctx context.Context, tag string) (bool, error) {
	return s.c.Exists(ctx, bson.M{"tag": strings.ToUpper(tag)})
}

// GetByIDs returns the groups with the given ids, keyed by id.
// Unknown ids are simply absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []string) (map[string]models.Group, error) {
	out := make(map[string]models.Group, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := s.c.List(ctx, bson.M{"_id": bson.M{"$in": ids}}, docstore.ListOptions{})
	if err != nil {
		return nil, err
	}
	for _, g := range list {
		out[g.ID] = g
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.c.Delete(ctx, id)
}
