package invitationstore_test

import (
	"errors"
	"testing"
	"time"

	invitationstore "github.com/dalemusser/alcancia/internal/app/store/invitations"
	"github.com/dalemusser/alcancia/internal/app/system/indexes"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/testutil"
)

func TestStore_PendingUniquenessAndTransition(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := invitationstore.New(db)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	inv := models.Invitation{
		GroupID:         "g1",
		InvitedByUserID: "admin",
		InvitedUserID:   "u1",
		Status:          models.InvitationPendiente,
		ExpiresAt:       now.Add(7 * 24 * time.Hour),
		CreatedAt:       now,
	}
	created, err := store.Create(ctx, inv)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, inv); !errors.Is(err, invitationstore.ErrAlreadyPending) {
		t.Errorf("second pending: expected ErrAlreadyPending, got %v", err)
	}

	found, ok, err := store.FindPending(ctx, "g1", "u1")
	if err != nil || !ok || found.ID != created.ID {
		t.Fatalf("FindPending: got %+v %v %v", found, ok, err)
	}

	moved, err := store.Transition(ctx, created.ID, models.InvitationPendiente, models.InvitationRechazada, now)
	if err != nil || !moved {
		t.Fatalf("Transition: got %v %v", moved, err)
	}
	// A terminal invitation cannot be moved again.
	moved, err = store.Transition(ctx, created.ID, models.InvitationPendiente, models.InvitationAceptada, now)
	if err != nil || moved {
		t.Errorf("second Transition: got %v %v, want false nil", moved, err)
	}

	// The pair is free for a new pending invitation once the old one resolved.
	if _, err := store.Create(ctx, inv); err != nil {
		t.Errorf("re-invite after rejection: %v", err)
	}

	pending, err := store.ListByInvitedUser(ctx, "u1", models.InvitationPendiente)
	if err != nil {
		t.Fatalf("ListByInvitedUser failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected 1 pending invitation, got %d", len(pending))
	}
}
