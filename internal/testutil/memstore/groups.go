package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	groupstore "github.com/dalemusser/alcancia/internal/app/store/groups"
	invitationstore "github.com/dalemusser/alcancia/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/alcancia/internal/app/store/memberships"
	userstore "github.com/dalemusser/alcancia/internal/app/store/users"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/domain/models"
)

/* --------------------------------- groups --------------------------------- */

type groupRow struct{ g models.Group }

type Groups struct {
	Faults

	mu   sync.Mutex
	rows map[string]*groupRow
	// Taken reserves tags without a group behind them.
	Taken map[string]bool
}

func (s *Groups) Create(_ context.Context, g models.Group) (models.Group, error) {
	if err := s.check("Create"); err != nil {
		return models.Group{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.Name = strings.TrimSpace(g.Name)
	g.Tag = strings.ToUpper(strings.TrimSpace(g.Tag))
	if s.tagTaken(g.Tag) {
		return models.Group{}, groupstore.ErrDuplicateTag
	}
	if g.ID == "" {
		g.ID = newID()
	}
	g.CreatedAt = stamp(g.CreatedAt)
	g.UpdatedAt = g.CreatedAt
	s.rows[g.ID] = &groupRow{g: g}
	return g, nil
}

func (s *Groups) tagTaken(tag string) bool {
	if s.Taken[tag] {
		return true
	}
	for _, r := range s.rows {
		if r.g.Tag == tag {
			return true
		}
	}
	return false
}

func (s *Groups) GetByID(_ context.Context, id string) (models.Group, error) {
	if err := s.check("GetByID"); err != nil {
		return models.Group{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return models.Group{}, apperr.New(apperr.KindNotFound, "group %s not found", id)
	}
	return r.g, nil
}

func (s *Groups) GetByTag(_ context.Context, tag string) (models.Group, error) {
	if err := s.check("GetByTag"); err != nil {
		return models.Group{}, err
	}
	tag = strings.ToUpper(strings.TrimSpace(tag))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.g.Tag == tag {
			return r.g, nil
		}
	}
	return models.Group{}, apperr.New(apperr.KindNotFound, "no group with tag %s", tag)
}

func (s *Groups) TagExists(_ context.Context, tag string) (bool, error) {
	if err := s.check("TagExists"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tagTaken(strings.ToUpper(tag)), nil
}

func (s *Groups) GetByIDs(_ context.Context, ids []string) (map[string]models.Group, error) {
	if err := s.check("GetByIDs"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.Group, len(ids))
	for _, id := range ids {
		if r, ok := s.rows[id]; ok {
			out[id] = r.g
		}
	}
	return out, nil
}

func (s *Groups) Delete(_ context.Context, id string) error {
	if err := s.check("Delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return apperr.New(apperr.KindNotFound, "group %s not found", id)
	}
	delete(s.rows, id)
	return nil
}

// Put stores g as-is, for seeding tests.
func (s *Groups) Put(g models.Group) models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = newID()
	}
	s.rows[g.ID] = &groupRow{g: g}
	return g
}

/* ------------------------------- memberships ------------------------------ */

type Memberships struct {
	Faults

	mu   sync.Mutex
	rows []models.GroupMembership
}

func (s *Memberships) Add(_ context.Context, groupID, userID, role string, joinedAt time.Time) (models.GroupMembership, error) {
	if err := s.check("Add"); err != nil {
		return models.GroupMembership{}, err
	}
	if !models.IsValidRole(role) {
		return models.GroupMembership{}, apperr.New(apperr.KindValidation, "invalid role %q", role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(groupID, userID) >= 0 {
		return models.GroupMembership{}, membershipstore.ErrAlreadyMember
	}
	m := models.GroupMembership{ID: newID(), GroupID: groupID, UserID: userID, Role: role, JoinedAt: stamp(joinedAt)}
	s.rows = append(s.rows, m)
	return m, nil
}

func (s *Memberships) find(groupID, userID string) int {
	for i, m := range s.rows {
		if m.GroupID == groupID && m.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Memberships) Get(_ context.Context, groupID, userID string) (models.GroupMembership, error) {
	if err := s.check("Get"); err != nil {
		return models.GroupMembership{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(groupID, userID)
	if i < 0 {
		return models.GroupMembership{}, apperr.New(apperr.KindNotFound, "user %s is not a member of group %s", userID, groupID)
	}
	return s.rows[i], nil
}

func (s *Memberships) Remove(_ context.Context, groupID, userID string) error {
	if err := s.check("Remove"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(groupID, userID); i >= 0 {
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
	}
	return nil
}

func (s *Memberships) ListByGroup(_ context.Context, groupID string) ([]models.GroupMembership, error) {
	if err := s.check("ListByGroup"); err != nil {
		return nil, err
	}
	return s.filter(func(m models.GroupMembership) bool { return m.GroupID == groupID }), nil
}

func (s *Memberships) ListByUser(_ context.Context, userID string) ([]models.GroupMembership, error) {
	if err := s.check("ListByUser"); err != nil {
		return nil, err
	}
	return s.filter(func(m models.GroupMembership) bool { return m.UserID == userID }), nil
}

func (s *Memberships) filter(keep func(models.GroupMembership) bool) []models.GroupMembership {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.GroupMembership{}
	for _, m := range s.rows {
		if keep(m) {
			out = append(out, m)
		}
	}
	byCreated(out, func(m models.GroupMembership) time.Time { return m.JoinedAt }, false)
	return out
}

func (s *Memberships) SetRole(_ context.Context, groupID, userID, role string) error {
	if err := s.check("SetRole"); err != nil {
		return err
	}
	if !models.IsValidRole(role) {
		return apperr.New(apperr.KindValidation, "invalid role %q", role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(groupID, userID)
	if i < 0 {
		return apperr.New(apperr.KindNotFound, "user %s is not a member of group %s", userID, groupID)
	}
	s.rows[i].Role = role
	return nil
}

func (s *Memberships) CountByRole(_ context.Context, groupID, role string) (int64, error) {
	if err := s.check("CountByRole"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.rows {
		if m.GroupID == groupID && m.Role == role {
			n++
		}
	}
	return n, nil
}

/* ------------------------------- invitations ------------------------------ */

type Invitations struct {
	Faults

	mu   sync.Mutex
	rows []models.Invitation
}

func (s *Invitations) Create(_ context.Context, inv models.Invitation) (models.Invitation, error) {
	if err := s.check("Create"); err != nil {
		return models.Invitation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.Status == models.InvitationPendiente {
		for _, r := range s.rows {
			if r.Status == models.InvitationPendiente && r.GroupID == inv.GroupID && r.InvitedUserID == inv.InvitedUserID {
				return models.Invitation{}, invitationstore.ErrAlreadyPending
			}
		}
	}
	if inv.ID == "" {
		inv.ID = newID()
	}
	inv.CreatedAt = stamp(inv.CreatedAt)
	s.rows = append(s.rows, inv)
	return inv, nil
}

func (s *Invitations) GetByID(_ context.Context, id string) (models.Invitation, error) {
	if err := s.check("GetByID"); err != nil {
		return models.Invitation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Invitation{}, apperr.New(apperr.KindNotFound, "invitation %s not found", id)
}

func (s *Invitations) FindPending(_ context.Context, groupID, userID string) (models.Invitation, bool, error) {
	if err := s.check("FindPending"); err != nil {
		return models.Invitation{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.Status == models.InvitationPendiente && r.GroupID == groupID && r.InvitedUserID == userID {
			return r, true, nil
		}
	}
	return models.Invitation{}, false, nil
}

func (s *Invitations) ListByInvitedUser(_ context.Context, userID, status string) ([]models.Invitation, error) {
	if err := s.check("ListByInvitedUser"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Invitation{}
	for _, r := range s.rows {
		if r.InvitedUserID == userID && r.Status == status {
			out = append(out, r)
		}
	}
	out = reversed(out)
	byCreated(out, func(i models.Invitation) time.Time { return i.CreatedAt }, true)
	return out, nil
}

func (s *Invitations) Transition(_ context.Context, id, from, to string, at time.Time) (bool, error) {
	if err := s.check("Transition"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID != id || s.rows[i].Status != from {
			continue
		}
		s.rows[i].Status = to
		if to == models.InvitationPendiente {
			s.rows[i].ResolvedAt = nil
		} else {
			t := at
			s.rows[i].ResolvedAt = &t
		}
		return true, nil
	}
	return false, nil
}

// Put stores inv as-is, for seeding tests.
func (s *Invitations) Put(inv models.Invitation) models.Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = newID()
	}
	s.rows = append(s.rows, inv)
	return inv
}

/* ---------------------------------- users --------------------------------- */

type userRow struct{ u models.User }

type Users struct {
	Faults

	mu   sync.Mutex
	rows map[string]*userRow
}

func (s *Users) Create(_ context.Context, u models.User) (models.User, error) {
	if err := s.check("Create"); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	if _, ok := s.rows[u.ID]; ok {
		return models.User{}, userstore.ErrUserExists
	}
	for _, r := range s.rows {
		if r.u.Tag == u.Tag {
			return models.User{}, userstore.ErrDuplicateTag
		}
	}
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = stamp(u.CreatedAt)
	s.rows[u.ID] = &userRow{u: u}
	return u, nil
}

func (s *Users) GetByID(_ context.Context, id string) (models.User, error) {
	if err := s.check("GetByID"); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return models.User{}, apperr.New(apperr.KindNotFound, "user %s not found", id)
	}
	return r.u, nil
}

func (s *Users) GetByTag(_ context.Context, tag string) (models.User, error) {
	if err := s.check("GetByTag"); err != nil {
		return models.User{}, err
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	if !strings.HasPrefix(tag, "@") {
		tag = "@" + tag
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.u.Tag == tag {
			return r.u, nil
		}
	}
	return models.User{}, apperr.New(apperr.KindNotFound, "no user with tag %s", tag)
}

func (s *Users) TagExists(_ context.Context, tag string) (bool, error) {
	if err := s.check("TagExists"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.u.Tag == tag {
			return true, nil
		}
	}
	return false, nil
}

func (s *Users) GetByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	if err := s.check("GetByIDs"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if r, ok := s.rows[id]; ok {
			out[id] = r.u
		}
	}
	return out, nil
}

// Put stores u as-is, for seeding tests.
func (s *Users) Put(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	s.rows[u.ID] = &userRow{u: u}
	return u
}
