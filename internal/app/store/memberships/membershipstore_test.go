package membershipstore_test

import (
	"errors"
	"testing"
	"time"

	membershipstore "github.com/dalemusser/alcancia/internal/app/store/memberships"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/app/system/indexes"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/testutil"
)

func TestStore_Add(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := membershipstore.New(db)

	if _, err := store.Add(ctx, "g1", "u1", models.RoleAdmin, time.Now()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := store.Add(ctx, "g1", "u1", models.RoleMember, time.Now()); !errors.Is(err, membershipstore.ErrAlreadyMember) {
		t.Errorf("duplicate Add: expected ErrAlreadyMember, got %v", err)
	}
	if _, err := store.Add(ctx, "g1", "u2", "owner", time.Now()); !errors.Is(err, apperr.Validation) {
		t.Errorf("invalid role: expected Validation, got %v", err)
	}
}

func TestStore_RolesAndCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, u := range []string{"u1", "u2", "u3"} {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleAdmin
		}
		if _, err := store.Add(ctx, "g1", u, role, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Add %s failed: %v", u, err)
		}
	}

	if err := store.SetRole(ctx, "g1", "u2", models.RoleAdmin); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	n, err := store.CountByRole(ctx, "g1", models.RoleAdmin)
	if err != nil {
		t.Fatalf("CountByRole failed: %v", err)
	}
	if n != 2 {
		t.Errorf("admins: got %d, want 2", n)
	}

	list, err := store.ListByGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(list) != 3 || list[0].UserID != "u1" || list[2].UserID != "u3" {
		t.Errorf("ListByGroup order: %+v", list)
	}

	if err := store.SetRole(ctx, "g1", "nobody", models.RoleAdmin); !errors.Is(err, apperr.NotFound) {
		t.Errorf("SetRole(nobody): expected NotFound, got %v", err)
	}

	if err := store.Remove(ctx, "g1", "u3"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := store.Get(ctx, "g1", "u3"); !errors.Is(err, apperr.NotFound) {
		t.Errorf("Get after Remove: expected NotFound, got %v", err)
	}
	if err := store.Remove(ctx, "g1", "u3"); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
}
