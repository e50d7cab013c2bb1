// internal/app/onboarding/onboarding.go
//
// Package onboarding registers users and creates groups, handing out their
// short tags, and manages who holds which role in a group.
package onboarding

import (
	"context"
	"errors"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/alcancia/internal/app/policy/grouppolicy"
	groupstore "github.com/dalemusser/alcancia/internal/app/store/groups"
	userstore "github.com/dalemusser/alcancia/internal/app/store/users"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/app/system/htmlsanitize"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"go.uber.org/zap"
)

const (
	maxNameLen        = 100
	maxDescriptionLen = 500

	// insertTries bounds how often a freshly generated tag may lose the
	// race to a concurrent insert before we give up.
	insertTries = 3
)

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type Groups interface {
	Create(ctx context.Context, g models.Group) (models.Group, error)
	GetByTag(ctx context.Context, tag string) (models.Group, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.Group, error)
	Delete(ctx context.Context, id string) error
}

type Memberships interface {
	Add(ctx context.Context, groupID, userID, role string, joinedAt time.Time) (models.GroupMembership, error)
	Get(ctx context.Context, groupID, userID string) (models.GroupMembership, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.GroupMembership, error)
	ListByUser(ctx context.Context, userID string) ([]models.GroupMembership, error)
	SetRole(ctx context.Context, groupID, userID, role string) error
	Remove(ctx context.Context, groupID, userID string) error
	CountByRole(ctx context.Context, groupID, role string) (int64, error)
}

// Tags allocates group and user tags.
type Tags interface {
	GenerateGroupTag(ctx context.Context) (string, error)
	GenerateUserTag(ctx context.Context, displayName string) (string, error)
}

type Deps struct {
	Users       Users
	Groups      Groups
	Memberships Memberships
	Tags        Tags
	Policy      *grouppolicy.Policy
}

// MyGroup is a group seen from one of its members.
type MyGroup struct {
	Group    models.Group `json:"group"`
	Role     string       `json:"role"`
	JoinedAt time.Time    `json:"joined_at"`
}

// Member is a membership with the member's profile.
type Member struct {
	UserID   string       `json:"user_id"`
	Role     string       `json:"role"`
	JoinedAt time.Time    `json:"joined_at"`
	User     *models.User `json:"user,omitempty"`
}

type Service struct {
	d   Deps
	log *zap.Logger
	now func() time.Time
}

func New(d Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{d: d, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock replaces the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// RegisterUser creates the profile for an authenticated identity and
// assigns it a user tag.
func (s *Service) RegisterUser(ctx context.Context, userID, name, email string) (models.User, error) {
	userID = strings.TrimSpace(userID)
	name = htmlsanitize.Limit(name, maxNameLen)
	email = strings.TrimSpace(email)
	if userID == "" {
		return models.User{}, apperr.New(apperr.KindValidation, "user id is required")
	}
	if name == "" {
		return models.User{}, apperr.New(apperr.KindValidation, "name is required")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return models.User{}, apperr.New(apperr.KindValidation, "email %q is not valid", email)
		}
	}

	if _, err := s.d.Users.GetByID(ctx, userID); err == nil {
		return models.User{}, userstore.ErrUserExists
	} else if !errors.Is(err, apperr.NotFound) {
		return models.User{}, err
	}

	for try := 1; ; try++ {
		tag, err := s.d.Tags.GenerateUserTag(ctx, name)
		if err != nil {
			return models.User{}, err
		}
		u, err := s.d.Users.Create(ctx, models.User{
			ID:        userID,
			Tag:       tag,
			Name:      name,
			Email:     email,
			CreatedAt: s.now(),
		})
		if err == nil {
			s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("tag", u.Tag))
			return u, nil
		}
		if err != userstore.ErrDuplicateTag || try >= insertTries {
			return models.User{}, err
		}
		s.log.Debug("user tag taken between check and insert, regenerating", zap.String("tag", tag))
	}
}

func (s *Service) GetUser(ctx context.Context, userID string) (models.User, error) {
	return s.d.Users.GetByID(ctx, userID)
}

// CreateGroup creates a group with a fresh tag and makes the creator its
// first admin. If the admin membership cannot be written the group is
// removed again.
func (s *Service) CreateGroup(ctx context.Context, creatorUserID, name, description string) (models.Group, error) {
	name = htmlsanitize.Limit(name, maxNameLen)
	if name == "" {
		return models.Group{}, apperr.New(apperr.KindValidation, "name is required")
	}
	if strings.TrimSpace(creatorUserID) == "" {
		return models.Group{}, apperr.New(apperr.KindValidation, "creator is required")
	}

	now := s.now()
	var (
		g   models.Group
		err error
	)
	for try := 1; ; try++ {
		var tag string
		if tag, err = s.d.Tags.GenerateGroupTag(ctx); err != nil {
			return models.Group{}, err
		}
		g, err = s.d.Groups.Create(ctx, models.Group{
			Name:            name,
			Description:     htmlsanitize.Limit(description, maxDescriptionLen),
			Tag:             tag,
			CreatedByUserID: creatorUserID,
			CreatedAt:       now,
		})
		if err == nil {
			break
		}
		if err != groupstore.ErrDuplicateTag || try >= insertTries {
			return models.Group{}, err
		}
	}

	if _, err := s.d.Memberships.Add(ctx, g.ID, creatorUserID, models.RoleAdmin, now); err != nil {
		if derr := s.d.Groups.Delete(ctx, g.ID); derr != nil {
			s.log.Error("group created without an admin and could not be removed",
				zap.String("group_id", g.ID),
				zap.NamedError("membership_error", err),
				zap.Error(derr))
			return models.Group{}, apperr.Wrap(apperr.KindPartialFailure, err,
				"group %s was created but its admin membership could not be written", g.ID)
		}
		return models.Group{}, err
	}

	s.log.Info("group created", zap.String("group_id", g.ID), zap.String("tag", g.Tag))
	return g, nil
}

// FindGroupByTag looks a group up by its tag, ignoring case.
func (s *Service) FindGroupByTag(ctx context.Context, tag string) (models.Group, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return models.Group{}, apperr.New(apperr.KindValidation, "tag is required")
	}
	return s.d.Groups.GetByTag(ctx, tag)
}

// ListMyGroups returns the groups userID belongs to, oldest membership first.
func (s *Service) ListMyGroups(ctx context.Context, userID string) ([]MyGroup, error) {
	ms, err := s.d.Memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]MyGroup, 0, len(ms))
	if len(ms) == 0 {
		return out, nil
	}
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.GroupID
	}
	groups, err := s.d.Groups.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		g, ok := groups[m.GroupID]
		if !ok {
			// Membership outlived its group.
			continue
		}
		out = append(out, MyGroup{Group: g, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return out, nil
}

// ListMembers returns the group's members, admins first, to any member.
func (s *Service) ListMembers(ctx context.Context, groupID, callerID string) ([]Member, error) {
	if _, err := s.d.Policy.RequireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	ms, err := s.d.Memberships.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.UserID
	}
	users, err := s.d.Users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Member, len(ms))
	for i, m := range ms {
		out[i] = Member{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
		if u, ok := users[m.UserID]; ok {
			u := u
			out[i].User = &u
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Role == models.RoleAdmin && out[b].Role != models.RoleAdmin
	})
	return out, nil
}

// SetMemberRole lets an admin promote or demote a member. A group always
// keeps at least one admin.
func (s *Service) SetMemberRole(ctx context.Context, groupID, callerID, targetUserID, role string) error {
	if !models.IsValidRole(role) {
		return apperr.New(apperr.KindValidation, "role must be %q or %q", models.RoleAdmin, models.RoleMember)
	}
	if _, err := s.d.Policy.RequireAdmin(ctx, groupID, callerID); err != nil {
		return err
	}
	target, err := s.d.Memberships.Get(ctx, groupID, targetUserID)
	if err != nil {
		return err
	}
	if target.Role == role {
		return nil
	}
	if target.Role == models.RoleAdmin {
		n, err := s.d.Memberships.CountByRole(ctx, groupID, models.RoleAdmin)
		if err != nil {
			return err
		}
		if n <= 1 {
			return apperr.New(apperr.KindValidation, "a group needs at least one admin")
		}
	}
	if err := s.d.Memberships.SetRole(ctx, groupID, targetUserID, role); err != nil {
		return err
	}
	if target.Role == models.RoleAdmin {
		err := s.keepAnAdmin(ctx, groupID, targetUserID, func() error {
			return s.d.Memberships.SetRole(ctx, groupID, targetUserID, models.RoleAdmin)
		})
		if err != nil {
			return err
		}
	}
	s.log.Info("member role changed",
		zap.String("group_id", groupID),
		zap.String("user_id", targetUserID),
		zap.String("role", role))
	return nil
}

// RemoveMember takes targetUserID out of the group. Admins may remove
// anyone; members may only remove themselves. The last admin cannot leave.
func (s *Service) RemoveMember(ctx context.Context, groupID, callerID, targetUserID string) error {
	caller, err := s.d.Policy.RequireMember(ctx, groupID, callerID)
	if err != nil {
		return err
	}
	if callerID != targetUserID && caller.Role != models.RoleAdmin {
		return apperr.New(apperr.KindNotAuthorized, "only an admin can remove other members")
	}
	target, err := s.d.Memberships.Get(ctx, groupID, targetUserID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleAdmin {
		n, err := s.d.Memberships.CountByRole(ctx, groupID, models.RoleAdmin)
		if err != nil {
			return err
		}
		if n <= 1 {
			return apperr.New(apperr.KindValidation, "a group needs at least one admin")
		}
	}
	if err := s.d.Memberships.Remove(ctx, groupID, targetUserID); err != nil {
		return err
	}
	if target.Role == models.RoleAdmin {
		err := s.keepAnAdmin(ctx, groupID, targetUserID, func() error {
			_, err := s.d.Memberships.Add(ctx, groupID, targetUserID, models.RoleAdmin, target.JoinedAt)
			return err
		})
		if err != nil {
			return err
		}
	}
	s.log.Info("member removed",
		zap.String("group_id", groupID),
		zap.String("user_id", targetUserID),
		zap.String("by", callerID))
	return nil
}

// keepAnAdmin recounts admins after an admin was demoted or removed. The
// count taken before the write can be stale when two admins act on each
// other at once; if the group ended up with none, restore undoes this
// caller's write and the change is refused.
func (s *Service) keepAnAdmin(ctx context.Context, groupID, userID string, restore func() error) error {
	n, err := s.d.Memberships.CountByRole(ctx, groupID, models.RoleAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := restore(); err != nil {
		s.log.Error("restoring last admin failed",
			zap.String("group_id", groupID),
			zap.String("user_id", userID),
			zap.Error(err))
		return err
	}
	s.log.Warn("admin change undone, group would have no admin",
		zap.String("group_id", groupID),
		zap.String("user_id", userID))
	return apperr.New(apperr.KindConflict, "a group needs at least one admin")
}
