// internal/app/policy/grouppolicy/grouppolicy.go
//
// Package grouppolicy answers "may this user act on this group" from the
// authoritative group_memberships collection.
package grouppolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/domain/models"
)

// Memberships is the membership lookup the policy needs.
type Memberships interface {
	Get(ctx context.Context, groupID, userID string) (models.GroupMembership, error)
}

// Policy evaluates membership-based rules.
type Policy struct {
	m Memberships
}

func New(m Memberships) *Policy {
	return &Policy{m: m}
}

// Membership returns the caller's membership, or ok=false if there is none.
func (p *Policy) Membership(ctx context.Context, groupID, userID string) (models.GroupMembership, bool, error) {
	gm, err := p.m.Get(ctx, groupID, userID)
	if errors.Is(err, apperr.NotFound) {
		return models.GroupMembership{}, false, nil
	}
	if err != nil {
		return models.GroupMembership{}, false, err
	}
	return gm, true, nil
}

// IsMember reports whether userID belongs to groupID in any role.
func (p *Policy) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	_, ok, err := p.Membership(ctx, groupID, userID)
	return ok, err
}

// IsAdmin reports whether userID is an admin of groupID.
func (p *Policy) IsAdmin(ctx context.Context, groupID, userID string) (bool, error) {
	gm, ok, err := p.Membership(ctx, groupID, userID)
	if err != nil || !ok {
		return false, err
	}
	return gm.Role == models.RoleAdmin, nil
}

// RequireMember fails with NotAuthorized unless userID belongs to groupID.
func (p *Policy) RequireMember(ctx context.Context, groupID, userID string) (models.GroupMembership, error) {
	gm, ok, err := p.Membership(ctx, groupID, userID)
	if err != nil {
		return models.GroupMembership{}, err
	}
	if !ok {
		return models.GroupMembership{}, apperr.New(apperr.KindNotAuthorized, "user is not a member of this group")
	}
	return gm, nil
}

// RequireAdmin fails with NotAuthorized unless userID is an admin of groupID.
func (p *Policy) RequireAdmin(ctx context.Context, groupID, userID string) (models.GroupMembership, error) {
	gm, ok, err := p.Membership(ctx, groupID, userID)
	if err != nil {
		return models.GroupMembership{}, err
	}
	if !ok || gm.Role != models.RoleAdmin {
		return models.GroupMembership{}, apperr.New(apperr.KindNotAuthorized, "only group admins can do this")
	}
	return gm, nil
}
