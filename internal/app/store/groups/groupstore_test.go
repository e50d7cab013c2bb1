package groupstore_test

import (
	"errors"
	"testing"

	groupstore "github.com/dalemusser/alcancia/internal/app/store/groups"
	"github.com/dalemusser/alcancia/internal/app/system/indexes"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/testutil"
)

func TestStore_CreateAndLookup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := groupstore.New(db)

	g, err := store.Create(ctx, models.Group{Name: "  Familia  ", Tag: "ab12cd", CreatedByUserID: "u1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if g.Name != "Familia" || g.Tag != "AB12CD" {
		t.Errorf("Create normalised to %q / %q", g.Name, g.Tag)
	}

	got, err := store.GetByTag(ctx, "ab12cd")
	if err != nil {
		t.Fatalf("GetByTag failed: %v", err)
	}
	if got.ID != g.ID {
		t.Errorf("GetByTag: got %s, want %s", got.ID, g.ID)
	}

	exists, err := store.TagExists(ctx, "AB12CD")
	if err != nil || !exists {
		t.Errorf("TagExists: got %v, %v", exists, err)
	}

	_, err = store.Create(ctx, models.Group{Name: "Otro", Tag: "AB12CD", CreatedByUserID: "u2"})
	if !errors.Is(err, groupstore.ErrDuplicateTag) {
		t.Errorf("duplicate tag: expected ErrDuplicateTag, got %v", err)
	}

	byID, err := store.GetByIDs(ctx, []string{g.ID, "missing"})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(byID) != 1 {
		t.Errorf("GetByIDs: expected 1 group, got %d", len(byID))
	}
}
