// internal/app/store/docstore/docstore.go
//
// Package docstore is the generic document-store collaborator every
// per-collection store is built on. It owns the translation from driver
// errors to the apperr kinds:
//
//   - mongo.ErrNoDocuments / zero matched -> NotFound
//   - duplicate key (E11000)              -> AlreadyExists
//   - anything else                       -> StoreUnavailable
//
// Documents are decoded straight into concrete model structs; a document
// that does not fit its struct fails the call rather than being passed on
// half-decoded.
package docstore

import (
	"context"
	"errors"

	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrVersionConflict is returned by guarded writes whose filter no longer
// matches (another writer bumped the version first).
var ErrVersionConflict = apperr.New(apperr.KindConflict, "document was modified concurrently")

// ListOptions controls ordering and size of List results.
type ListOptions struct {
	Sort  bson.D
	Limit int64
}

// Collection is a typed view over one Mongo collection.
type Collection[T any] struct {
	c *mongo.Collection
}

// NewCollection returns a typed collection handle.
func NewCollection[T any](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{c: db.Collection(name)}
}

// Name returns the collection name.
func (s *Collection[T]) Name() string { return s.c.Name() }

// Raw exposes the driver collection for aggregations.
func (s *Collection[T]) Raw() *mongo.Collection { return s.c }

// Create inserts doc.
func (s *Collection[T]) Create(ctx context.Context, doc T) error {
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		return s.translate(err, "create")
	}
	return nil
}

// Get loads the document with the given _id.
func (s *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	return s.FindOne(ctx, bson.M{"_id": id})
}

// FindOne loads the first document matching filter.
func (s *Collection[T]) FindOne(ctx context.Context, filter bson.M) (T, error) {
	var out T
	if err := s.c.FindOne(ctx, filter).Decode(&out); err != nil {
		var zero T
		return zero, s.translate(err, "find")
	}
	return out, nil
}

// Update applies $set to the document with the given _id.
func (s *Collection[T]) Update(ctx context.Context, id string, set bson.M) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return s.translate(err, "update")
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "%s %s not found", s.singular(), id)
	}
	return nil
}

// UpdateWhere applies update to the single document matching filter and
// reports whether a document matched. It is the compare-and-swap primitive:
// callers put the expected version (or state) in the filter.
func (s *Collection[T]) UpdateWhere(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, s.translate(err, "update")
	}
	return res.MatchedCount > 0, nil
}

// UpdateManyWhere applies update to every document matching filter and
// returns how many were modified.
func (s *Collection[T]) UpdateManyWhere(ctx context.Context, filter, update bson.M) (int64, error) {
	res, err := s.c.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, s.translate(err, "update")
	}
	return res.ModifiedCount, nil
}

// Delete removes the document with the given _id.
func (s *Collection[T]) Delete(ctx context.Context, id string) error {
	ok, err := s.DeleteWhere(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.KindNotFound, "%s %s not found", s.singular(), id)
	}
	return nil
}

// DeleteWhere removes the single document matching filter and reports
// whether one was removed.
func (s *Collection[T]) DeleteWhere(ctx context.Context, filter bson.M) (bool, error) {
	res, err := s.c.DeleteOne(ctx, filter)
	if err != nil {
		return false, s.translate(err, "delete")
	}
	return res.DeletedCount > 0, nil
}

// List returns every document matching filter.
func (s *Collection[T]) List(ctx context.Context, filter bson.M, lo ListOptions) ([]T, error) {
	opts := options.Find()
	if len(lo.Sort) > 0 {
		opts.SetSort(lo.Sort)
	}
	if lo.Limit > 0 {
		opts.SetLimit(lo.Limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, s.translate(err, "list")
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, s.translate(err, "decode")
	}
	return out, nil
}

// Exists reports whether any document matches filter.
func (s *Collection[T]) Exists(ctx context.Context, filter bson.M) (bool, error) {
	err := s.c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, s.translate(err, "exists")
	}
	return true, nil
}

// Count returns the number of documents matching filter.
func (s *Collection[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	n, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, s.translate(err, "count")
	}
	return n, nil
}

func (s *Collection[T]) translate(err error, op string) error {
	return Translate(err, s.c.Name(), op)
}

func (s *Collection[T]) singular() string {
	name := s.c.Name()
	if n := len(name); n > 1 && name[n-1] == 's' {
		return name[:n-1]
	}
	return name
}

// Translate maps a driver error to an apperr kind.
func Translate(err error, collection, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.Wrap(apperr.KindNotFound, err, "%s: not found", collection)
	}
	if wafflemongo.IsDup(err) {
		return apperr.Wrap(apperr.KindAlreadyExists, err, "%s: duplicate", collection)
	}
	return apperr.Wrap(apperr.KindStoreUnavailable, err, "%s: %s failed", collection, op)
}

// IsDuplicate reports whether err is a duplicate-key failure.
func IsDuplicate(err error) bool {
	return errors.Is(err, apperr.AlreadyExists)
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.NotFound)
}
