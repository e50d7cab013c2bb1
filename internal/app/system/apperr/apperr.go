// Package apperr defines the error kinds the ledger, invitation and
// onboarding services return.
//
// Every domain failure is an *Error carrying a Kind, so callers can tell
// kinds apart with errors.Is against the exported kind sentinels:
//
//	if errors.Is(err, apperr.InsufficientFunds) { ... }
//
// Store failures surface as StoreUnavailable; the driver error stays in the
// wrapped chain for logs but never appears in Message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for clients.
type Kind string

const (
	KindValidation               Kind = "validation"
	KindInsufficientFunds        Kind = "insufficient_funds"
	KindAmountExceedsRemaining   Kind = "amount_exceeds_remaining"
	KindGoalAlreadyCompleted     Kind = "goal_already_completed"
	KindGoalHasProgress          Kind = "goal_has_progress"
	KindGoalHasContributions     Kind = "goal_has_contributions"
	KindNotAuthorized            Kind = "not_authorized"
	KindAlreadyMember            Kind = "already_member"
	KindInvitationAlreadyPending Kind = "invitation_already_pending"
	KindInvitationNotPending     Kind = "invitation_not_pending"
	KindInvitationExpired        Kind = "invitation_expired"
	KindNotFound                 Kind = "not_found"
	KindAlreadyExists            Kind = "already_exists"
	KindConflict                 Kind = "conflict"
	KindCodeSpaceExhausted       Kind = "code_space_exhausted"
	KindPartialFailure           Kind = "partial_failure"
	KindStoreUnavailable         Kind = "store_unavailable"
	KindRateLimited              Kind = "rate_limited"
	KindInternal                 Kind = "internal"
)

// Kind sentinels for errors.Is.
var (
	Validation               = &Error{Kind: KindValidation}
	InsufficientFunds        = &Error{Kind: KindInsufficientFunds}
	AmountExceedsRemaining   = &Error{Kind: KindAmountExceedsRemaining}
	GoalAlreadyCompleted     = &Error{Kind: KindGoalAlreadyCompleted}
	GoalHasProgress          = &Error{Kind: KindGoalHasProgress}
	GoalHasContributions     = &Error{Kind: KindGoalHasContributions}
	NotAuthorized            = &Error{Kind: KindNotAuthorized}
	AlreadyMember            = &Error{Kind: KindAlreadyMember}
	InvitationAlreadyPending = &Error{Kind: KindInvitationAlreadyPending}
	InvitationNotPending     = &Error{Kind: KindInvitationNotPending}
	InvitationExpired        = &Error{Kind: KindInvitationExpired}
	NotFound                 = &Error{Kind: KindNotFound}
	AlreadyExists            = &Error{Kind: KindAlreadyExists}
	Conflict                 = &Error{Kind: KindConflict}
	CodeSpaceExhausted       = &Error{Kind: KindCodeSpaceExhausted}
	PartialFailure           = &Error{Kind: KindPartialFailure}
	StoreUnavailable         = &Error{Kind: KindStoreUnavailable}
	RateLimited              = &Error{Kind: KindRateLimited}
)

// Error is a kinded, human-readable error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the package-level sentinels
// work with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind that wraps err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage is the message safe to show a client. Store and internal
// failures never expose the wrapped driver error.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindStoreUnavailable:
		return "storage temporarily unavailable"
	case KindInternal:
		return "internal error"
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}
