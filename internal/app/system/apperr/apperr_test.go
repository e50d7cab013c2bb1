package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByKind(t *testing.T) {
	err := New(KindInsufficientFunds, "balance 10.00 is less than 20.00")

	if !errors.Is(err, InsufficientFunds) {
		t.Error("expected errors.Is to match InsufficientFunds")
	}
	if errors.Is(err, AmountExceedsRemaining) {
		t.Error("did not expect match on a different kind")
	}

	wrapped := fmt.Errorf("contribute: %w", err)
	if !errors.Is(wrapped, InsufficientFunds) {
		t.Error("expected match through fmt.Errorf wrapping")
	}
	if KindOf(wrapped) != KindInsufficientFunds {
		t.Errorf("KindOf = %s", KindOf(wrapped))
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("KindOf(plain) = %s, want internal", got)
	}
}

func TestPublicMessageHidesStoreDetail(t *testing.T) {
	driverErr := errors.New("connection refused: 10.0.0.3:27017")
	err := Wrap(KindStoreUnavailable, driverErr, "get account")

	msg := PublicMessage(err)
	if msg != "storage temporarily unavailable" {
		t.Errorf("PublicMessage = %q", msg)
	}
	if !errors.Is(err, driverErr) {
		t.Error("driver error should remain in the chain")
	}
}

func TestPublicMessageDomain(t *testing.T) {
	err := New(KindAmountExceedsRemaining, "amount exceeds remaining %s", "5.00")
	if got := PublicMessage(err); got != "amount exceeds remaining 5.00" {
		t.Errorf("PublicMessage = %q", got)
	}
	if got := PublicMessage(NotFound); got != "not_found" {
		t.Errorf("PublicMessage(sentinel) = %q", got)
	}
}
