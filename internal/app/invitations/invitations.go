// internal/app/invitations/invitations.go
//
// Package invitations runs the group invitation state machine:
//
//	pendiente -> aceptada | rechazada | expirada
//
// All three targets are terminal. Expiry is only materialised when an
// invitation is read (listing, accepting, rejecting, or re-inviting); there
// is no sweeper.
package invitations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/alcancia/internal/app/policy/grouppolicy"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/app/system/metrics"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTTL is how long an invitation stays pending.
const DefaultTTL = 7 * 24 * time.Hour

type Store interface {
	Create(ctx context.Context, inv models.Invitation) (models.Invitation, error)
	GetByID(ctx context.Context, id string) (models.Invitation, error)
	FindPending(ctx context.Context, groupID, userID string) (models.Invitation, bool, error)
	ListByInvitedUser(ctx context.Context, userID, status string) ([]models.Invitation, error)
	Transition(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

type Memberships interface {
	Add(ctx context.Context, groupID, userID, role string, joinedAt time.Time) (models.GroupMembership, error)
	Get(ctx context.Context, groupID, userID string) (models.GroupMembership, error)
}

type Groups interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]models.Group, error)
}

type Users interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

// Deps are the collaborators of a Service. Metrics may be nil.
type Deps struct {
	Invitations Store
	Memberships Memberships
	Groups      Groups
	Users       Users
	Policy      *grouppolicy.Policy
	Metrics     *metrics.Ledger
}

// Pending is a still-pending invitation with its group and inviter.
type Pending struct {
	Invitation models.Invitation `json:"invitation"`
	Group      *models.Group     `json:"group,omitempty"`
	InvitedBy  *models.User      `json:"invited_by,omitempty"`
}

type Service struct {
	d   Deps
	ttl time.Duration
	log *zap.Logger
	now func() time.Time
}

// New returns a Service. A non-positive ttl means DefaultTTL.
func New(d Deps, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		d:   d,
		ttl: ttl,
		log: logger,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Create invites invitedUserID to groupID on behalf of invitedByUserID,
// who must be a group admin.
func (s *Service) Create(ctx context.Context, groupID, invitedByUserID, invitedUserID string) (models.Invitation, error) {
	groupID = strings.TrimSpace(groupID)
	invitedUserID = strings.TrimSpace(invitedUserID)
	if groupID == "" || invitedUserID == "" {
		return models.Invitation{}, apperr.New(apperr.KindValidation, "group and invited user are required")
	}
	if _, err := s.d.Policy.RequireAdmin(ctx, groupID, invitedByUserID); err != nil {
		return models.Invitation{}, err
	}
	if _, err := s.d.Users.GetByID(ctx, invitedUserID); err != nil {
		return models.Invitation{}, err
	}

	member, err := s.d.Policy.IsMember(ctx, groupID, invitedUserID)
	if err != nil {
		return models.Invitation{}, err
	}
	if member {
		return models.Invitation{}, apperr.New(apperr.KindAlreadyMember, "user is already a member of this group")
	}

	now := s.now()
	prev, found, err := s.d.Invitations.FindPending(ctx, groupID, invitedUserID)
	if err != nil {
		return models.Invitation{}, err
	}
	if found {
		if !prev.ExpiredAt(now) {
			return models.Invitation{}, apperr.New(apperr.KindInvitationAlreadyPending,
				"an invitation for this user is already pending until %s", prev.ExpiresAt.Format(time.RFC3339))
		}
		// A stale pending row would otherwise block the new one.
		if err := s.expire(ctx, prev, now); err != nil {
			return models.Invitation{}, err
		}
	}

	inv, err := s.d.Invitations.Create(ctx, models.Invitation{
		GroupID:         groupID,
		InvitedByUserID: invitedByUserID,
		InvitedUserID:   invitedUserID,
		Status:          models.InvitationPendiente,
		ExpiresAt:       now.Add(s.ttl),
		CreatedAt:       now,
	})
	if err != nil {
		return models.Invitation{}, err
	}
	s.d.Metrics.InvitationTransition(models.InvitationPendiente)
	s.log.Info("invitation created",
		zap.String("invitation_id", inv.ID),
		zap.String("group_id", groupID),
		zap.String("invited_user_id", invitedUserID))
	return inv, nil
}

// expire moves a pending invitation to expirada. Losing the race to
// another resolution is not an error.
func (s *Service) expire(ctx context.Context, inv models.Invitation, now time.Time) error {
	ok, err := s.d.Invitations.Transition(ctx, inv.ID, models.InvitationPendiente, models.InvitationExpirada, now)
	if err != nil {
		return err
	}
	if ok {
		s.d.Metrics.InvitationTransition(models.InvitationExpirada)
		s.log.Debug("invitation expired", zap.String("invitation_id", inv.ID))
	}
	return nil
}

// ListPending returns the caller's pending invitations, newest first.
// Invitations found past their expiry are moved to expirada and left out.
func (s *Service) ListPending(ctx context.Context, userID string) ([]Pending, error) {
	rows, err := s.d.Invitations.ListByInvitedUser(ctx, userID, models.InvitationPendiente)
	if err != nil {
		return nil, err
	}

	now := s.now()
	live := make([]models.Invitation, 0, len(rows))
	for _, inv := range rows {
		if inv.ExpiredAt(now) {
			if err := s.expire(ctx, inv, now); err != nil {
				return nil, err
			}
			continue
		}
		live = append(live, inv)
	}

	out := make([]Pending, len(live))
	if len(live) == 0 {
		return out, nil
	}

	groupIDs := make([]string, 0, len(live))
	inviterIDs := make([]string, 0, len(live))
	for _, inv := range live {
		groupIDs = append(groupIDs, inv.GroupID)
		inviterIDs = append(inviterIDs, inv.InvitedByUserID)
	}

	var (
		groups   map[string]models.Group
		inviters map[string]models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groups, err = s.d.Groups.GetByIDs(gctx, groupIDs)
		return err
	})
	g.Go(func() error {
		var err error
		inviters, err = s.d.Users.GetByIDs(gctx, inviterIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, inv := range live {
		out[i].Invitation = inv
		if grp, ok := groups[inv.GroupID]; ok {
			grp := grp
			out[i].Group = &grp
		}
		if u, ok := inviters[inv.InvitedByUserID]; ok {
			u := u
			out[i].InvitedBy = &u
		}
	}
	return out, nil
}

// load fetches an invitation addressed to userID and checks it is still
// pending and unexpired, materialising expiry if it has lapsed.
func (s *Service) load(ctx context.Context, invitationID, userID string, now time.Time) (models.Invitation, error) {
	inv, err := s.d.Invitations.GetByID(ctx, invitationID)
	if err != nil {
		return models.Invitation{}, err
	}
	if inv.InvitedUserID != userID {
		return models.Invitation{}, apperr.New(apperr.KindNotAuthorized, "invitation is addressed to another user")
	}
	if inv.Status != models.InvitationPendiente {
		return models.Invitation{}, apperr.New(apperr.KindInvitationNotPending, "invitation is already %s", inv.Status)
	}
	if inv.ExpiredAt(now) {
		if err := s.expire(ctx, inv, now); err != nil {
			return models.Invitation{}, err
		}
		return models.Invitation{}, apperr.New(apperr.KindInvitationExpired,
			"invitation expired at %s", inv.ExpiresAt.Format(time.RFC3339))
	}
	return inv, nil
}

// Accept joins the invited user to the group as a member.
//
// The invitation is claimed (pendiente -> aceptada) before the membership
// is written, so concurrent accept/reject calls resolve it exactly once.
// If the membership write fails the claim is released.
func (s *Service) Accept(ctx context.Context, invitationID, userID string) (models.GroupMembership, error) {
	now := s.now()
	inv, err := s.load(ctx, invitationID, userID, now)
	if err != nil {
		return models.GroupMembership{}, err
	}

	ok, err := s.d.Invitations.Transition(ctx, inv.ID, models.InvitationPendiente, models.InvitationAceptada, now)
	if err != nil {
		return models.GroupMembership{}, err
	}
	if !ok {
		return models.GroupMembership{}, apperr.New(apperr.KindInvitationNotPending, "invitation was resolved concurrently")
	}

	gm, err := s.d.Memberships.Add(ctx, inv.GroupID, userID, models.RoleMember, now)
	if errors.Is(err, apperr.AlreadyMember) {
		gm, err = s.d.Memberships.Get(ctx, inv.GroupID, userID)
	}
	if err != nil {
		released, rerr := s.d.Invitations.Transition(ctx, inv.ID, models.InvitationAceptada, models.InvitationPendiente, now)
		if rerr != nil || !released {
			s.d.Metrics.PartialFailure("invitation_accept")
			s.log.Error("invitation accepted but membership not created",
				zap.String("invitation_id", inv.ID),
				zap.String("group_id", inv.GroupID),
				zap.String("user_id", userID),
				zap.NamedError("membership_error", err),
				zap.Error(rerr))
			return models.GroupMembership{}, apperr.Wrap(apperr.KindPartialFailure, err,
				"invitation %s was accepted but the membership could not be created", inv.ID)
		}
		return models.GroupMembership{}, err
	}

	s.d.Metrics.InvitationTransition(models.InvitationAceptada)
	s.log.Info("invitation accepted",
		zap.String("invitation_id", inv.ID),
		zap.String("group_id", inv.GroupID),
		zap.String("user_id", userID))
	return gm, nil
}

// Reject declines a pending invitation. Terminal invitations stay as they are.
func (s *Service) Reject(ctx context.Context, invitationID, userID string) (models.Invitation, error) {
	now := s.now()
	inv, err := s.load(ctx, invitationID, userID, now)
	if err != nil {
		return models.Invitation{}, err
	}
	ok, err := s.d.Invitations.Transition(ctx, inv.ID, models.InvitationPendiente, models.InvitationRechazada, now)
	if err != nil {
		return models.Invitation{}, err
	}
	if !ok {
		return models.Invitation{}, apperr.New(apperr.KindInvitationNotPending, "invitation was resolved concurrently")
	}
	s.d.Metrics.InvitationTransition(models.InvitationRechazada)

	inv.Status = models.InvitationRechazada
	inv.ResolvedAt = &now
	return inv, nil
}
