package indexes_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/alcancia/internal/app/system/indexes"
	"github.com/dalemusser/alcancia/internal/testutil"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, ctx context.Context, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		coll  string
		names []string
	}{
		{"users", []string{"uniq_user_tag", "idx_user_email"}},
		{"accounts", []string{"uniq_account_owner"}},
		{"transactions", []string{"idx_txn_account_created"}},
		{"goals", []string{"idx_goal_owner_created"}},
		{"groups", []string{"uniq_group_tag"}},
		{"group_memberships", []string{"uniq_membership_group_user", "idx_membership_user"}},
		{"group_goals", []string{"idx_groupgoal_group_created"}},
		{"contributions", []string{"idx_contribution_goal_created"}},
		{"invitations", []string{"uniq_invitation_pending_pair", "idx_invitation_invited_status"}},
	}
	for _, tt := range tests {
		t.Run(tt.coll, func(t *testing.T) {
			got := indexNames(t, ctx, db, tt.coll)
			for _, name := range tt.names {
				if !got[name] {
					t.Errorf("expected index %q on %s", name, tt.coll)
				}
			}
		})
	}
}

func TestPendingInvitationIndexIsPartial(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("invitations")
	now := time.Now().UTC()

	doc := func(id, status string) bson.M {
		return bson.M{"_id": id, "group_id": "g1", "invited_user_id": "u1", "invited_by_user_id": "a1",
			"status": status, "expires_at": now, "created_at": now}
	}

	// Any number of resolved invitations for the same pair is fine.
	for i, id := range []string{"r1", "r2"} {
		if _, err := coll.InsertOne(ctx, doc(id, "rechazada")); err != nil {
			t.Fatalf("insert resolved #%d: %v", i, err)
		}
	}
	if _, err := coll.InsertOne(ctx, doc("p1", "pendiente")); err != nil {
		t.Fatalf("insert first pending: %v", err)
	}
	_, err := coll.InsertOne(ctx, doc("p2", "pendiente"))
	if !wafflemongo.IsDup(err) {
		t.Fatalf("second pending insert: expected duplicate key error, got %v", err)
	}
}

func TestGroupTagIsUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("groups")
	if _, err := coll.InsertOne(ctx, bson.M{"_id": "g1", "tag": "ABC123"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := coll.InsertOne(ctx, bson.M{"_id": "g2", "tag": "ABC123"}); !wafflemongo.IsDup(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}
