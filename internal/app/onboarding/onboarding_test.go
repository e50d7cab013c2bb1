package onboarding

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dalemusser/alcancia/internal/app/policy/grouppolicy"
	"github.com/dalemusser/alcancia/internal/app/system/apperr"
	"github.com/dalemusser/alcancia/internal/app/system/codegen"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/testutil/memstore"
	"go.uber.org/zap"
)

var now = time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)

// fixedTags hands out tags from a list, then falls back to the real generator.
type fixedTags struct {
	user  []string
	group []string
	next  Tags
}

func (f *fixedTags) GenerateUserTag(ctx context.Context, name string) (string, error) {
	if len(f.user) > 0 {
		t := f.user[0]
		f.user = f.user[1:]
		return t, nil
	}
	return f.next.GenerateUserTag(ctx, name)
}

func (f *fixedTags) GenerateGroupTag(ctx context.Context) (string, error) {
	if len(f.group) > 0 {
		t := f.group[0]
		f.group = f.group[1:]
		return t, nil
	}
	return f.next.GenerateGroupTag(ctx)
}

func newService(t *testing.T, tags Tags) (*Service, *memstore.DB) {
	t.Helper()
	db := memstore.New()
	if tags == nil {
		tags = codegen.New(db.Groups, db.Users)
	}
	svc := New(Deps{
		Users:       db.Users,
		Groups:      db.Groups,
		Memberships: db.Memberships,
		Tags:        tags,
		Policy:      grouppolicy.New(db.Memberships),
	}, zap.NewNop())
	svc.SetClock(func() time.Time { return now })
	return svc, db
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if got := apperr.KindOf(err); err == nil || got != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, got, err)
	}
}

func TestRegisterUser(t *testing.T) {
	db := memstore.New()
	gen := codegen.New(db.Groups, db.Users, codegen.WithRand(bytes.NewReader(make([]byte, 64))))
	svc := New(Deps{Users: db.Users, Groups: db.Groups, Memberships: db.Memberships, Tags: gen}, zap.NewNop())
	svc.SetClock(func() time.Time { return now })
	ctx := context.Background()

	u, err := svc.RegisterUser(ctx, "u1", "  María García ", "Maria@Example.com")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if u.Tag != "@mariagaaaa" {
		t.Errorf("Tag = %q, want @mariagaaaa", u.Tag)
	}
	if u.Name != "María García" || u.Email != "maria@example.com" || !u.CreatedAt.Equal(now) {
		t.Errorf("user = %+v", u)
	}

	_, err = svc.RegisterUser(ctx, "u1", "María García", "")
	wantKind(t, err, apperr.KindAlreadyExists)

	got, err := svc.GetUser(ctx, "u1")
	if err != nil || got.Tag != u.Tag {
		t.Errorf("GetUser = %+v, %v", got, err)
	}
}

func TestRegisterUser_Validation(t *testing.T) {
	svc, _ := newService(t, nil)
	tests := []struct {
		name, id, display, email string
	}{
		{"missing id", "", "Ana", ""},
		{"blank name", "u1", "   ", ""},
		{"markup only", "u1", "<b></b>", ""},
		{"bad email", "u1", "Ana", "not-an-email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterUser(context.Background(), tt.id, tt.display, tt.email)
			wantKind(t, err, apperr.KindValidation)
		})
	}
}

func TestRegisterUser_RetriesLostTagRace(t *testing.T) {
	db := memstore.New()
	tags := &fixedTags{user: []string{"@ana1111", "@ana2222"}, next: codegen.New(db.Groups, db.Users)}
	svc := New(Deps{Users: db.Users, Tags: tags}, zap.NewNop())
	db.Users.Put(models.User{ID: "other", Tag: "@ana1111", Name: "Ana"})

	u, err := svc.RegisterUser(context.Background(), "u1", "Ana", "")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if u.Tag != "@ana2222" {
		t.Errorf("Tag = %q, want @ana2222", u.Tag)
	}
}

func TestCreateGroup(t *testing.T) {
	svc, db := newService(t, nil)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, "u1", "Familia", "<i>ahorro</i> común")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if len(g.Tag) != codegen.GroupTagLength {
		t.Errorf("Tag = %q", g.Tag)
	}
	if g.Description != "ahorro común" {
		t.Errorf("Description = %q", g.Description)
	}
	gm, err := db.Memberships.Get(ctx, g.ID, "u1")
	if err != nil || gm.Role != models.RoleAdmin {
		t.Errorf("creator membership = %+v, %v", gm, err)
	}

	found, err := svc.FindGroupByTag(ctx, "  "+string(bytes.ToLower([]byte(g.Tag))))
	if err != nil || found.ID != g.ID {
		t.Errorf("FindGroupByTag = %+v, %v", found, err)
	}
	_, err = svc.FindGroupByTag(ctx, "ZZZZZZ")
	wantKind(t, err, apperr.KindNotFound)

	_, err = svc.CreateGroup(ctx, "u1", " ", "")
	wantKind(t, err, apperr.KindValidation)
}

func TestCreateGroup_RetriesLostTagRace(t *testing.T) {
	db := memstore.New()
	db.Groups.Taken = map[string]bool{"AAAAAA": true}
	tags := &fixedTags{group: []string{"AAAAAA", "BBBBBB"}, next: codegen.New(db.Groups, db.Users)}
	svc := New(Deps{Groups: db.Groups, Memberships: db.Memberships, Tags: tags}, zap.NewNop())

	g, err := svc.CreateGroup(context.Background(), "u1", "Amigos", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if g.Tag != "BBBBBB" {
		t.Errorf("Tag = %q, want BBBBBB", g.Tag)
	}
}

func TestCreateGroup_MembershipFailureRemovesGroup(t *testing.T) {
	tags := &fixedTags{group: []string{"CCCCCC"}}
	svc, db := newService(t, tags)
	db.Memberships.FailNext("Add", apperr.New(apperr.KindStoreUnavailable, "down"))

	_, err := svc.CreateGroup(context.Background(), "u1", "Amigos", "")
	wantKind(t, err, apperr.KindStoreUnavailable)
	_, err = db.Groups.GetByTag(context.Background(), "CCCCCC")
	wantKind(t, err, apperr.KindNotFound)
}

func TestCreateGroup_OrphanIsPartialFailure(t *testing.T) {
	tags := &fixedTags{group: []string{"DDDDDD"}}
	svc, db := newService(t, tags)
	db.Memberships.FailNext("Add", apperr.New(apperr.KindStoreUnavailable, "down"))
	db.Groups.FailNext("Delete", apperr.New(apperr.KindStoreUnavailable, "down"))

	_, err := svc.CreateGroup(context.Background(), "u1", "Amigos", "")
	wantKind(t, err, apperr.KindPartialFailure)
}

func TestListMyGroupsAndMembers(t *testing.T) {
	svc, db := newService(t, nil)
	ctx := context.Background()
	db.Users.Put(models.User{ID: "u1", Tag: "@ana1234", Name: "Ana"})
	db.Users.Put(models.User{ID: "u2", Tag: "@beto1234", Name: "Beto"})

	g1, err := svc.CreateGroup(ctx, "u1", "Familia", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	g2, err := svc.CreateGroup(ctx, "u2", "Trabajo", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := db.Memberships.Add(ctx, g2.ID, "u1", models.RoleMember, now); err != nil {
		t.Fatalf("Add: %v", err)
	}

	mine, err := svc.ListMyGroups(ctx, "u1")
	if err != nil {
		t.Fatalf("ListMyGroups: %v", err)
	}
	if len(mine) != 2 || mine[0].Group.ID != g1.ID || mine[0].Role != models.RoleAdmin || mine[1].Role != models.RoleMember {
		t.Errorf("ListMyGroups = %+v", mine)
	}

	members, err := svc.ListMembers(ctx, g2.ID, "u1")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 2 || members[0].UserID != "u2" || members[0].User == nil || members[0].User.Name != "Beto" {
		t.Errorf("ListMembers = %+v", members)
	}

	_, err = svc.ListMembers(ctx, g1.ID, "u2")
	wantKind(t, err, apperr.KindNotAuthorized)

	none, err := svc.ListMyGroups(ctx, "nobody")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("ListMyGroups(nobody) = %#v, %v", none, err)
	}
}

func TestSetMemberRole(t *testing.T) {
	svc, db := newService(t, nil)
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, "admin", "Familia", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := db.Memberships.Add(ctx, g.ID, "u2", models.RoleMember, now); err != nil {
		t.Fatalf("Add: %v", err)
	}

	wantKind(t, svc.SetMemberRole(ctx, g.ID, "admin", "admin", models.RoleMember), apperr.KindValidation)
	wantKind(t, svc.SetMemberRole(ctx, g.ID, "u2", "u2", models.RoleAdmin), apperr.KindNotAuthorized)
	wantKind(t, svc.SetMemberRole(ctx, g.ID, "admin", "u2", "owner"), apperr.KindValidation)
	wantKind(t, svc.SetMemberRole(ctx, g.ID, "admin", "ghost", models.RoleAdmin), apperr.KindNotFound)

	if err := svc.SetMemberRole(ctx, g.ID, "admin", "u2", models.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	// With two admins the original one may step down.
	if err := svc.SetMemberRole(ctx, g.ID, "u2", "admin", models.RoleMember); err != nil {
		t.Fatalf("demote: %v", err)
	}
	gm, _ := db.Memberships.Get(ctx, g.ID, "admin")
	if gm.Role != models.RoleMember {
		t.Errorf("role = %q, want member", gm.Role)
	}
	wantKind(t, svc.SetMemberRole(ctx, g.ID, "u2", "u2", models.RoleMember), apperr.KindValidation)
}

func TestRemoveMember(t *testing.T) {
	svc, db := newService(t, nil)
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, "admin", "Familia", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	for _, u := range []string{"u2", "u3"} {
		if _, err := db.Memberships.Add(ctx, g.ID, u, models.RoleMember, now); err != nil {
			t.Fatalf("Add(%s): %v", u, err)
		}
	}

	wantKind(t, svc.RemoveMember(ctx, g.ID, "u2", "u3"), apperr.KindNotAuthorized)
	wantKind(t, svc.RemoveMember(ctx, g.ID, "stranger", "stranger"), apperr.KindNotAuthorized)
	wantKind(t, svc.RemoveMember(ctx, g.ID, "admin", "ghost"), apperr.KindNotFound)
	wantKind(t, svc.RemoveMember(ctx, g.ID, "admin", "admin"), apperr.KindValidation)

	if err := svc.RemoveMember(ctx, g.ID, "u2", "u2"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := svc.RemoveMember(ctx, g.ID, "admin", "u3"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	left, err := db.Memberships.ListByGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(left) != 1 || left[0].UserID != "admin" {
		t.Errorf("remaining = %+v, want only admin", left)
	}
}

// staleAdminCount returns the admin count as it stood before during ran,
// like a count read just before another admin's write lands.
type staleAdminCount struct {
	Memberships
	during func()
	fired  bool
}

func (s *staleAdminCount) CountByRole(ctx context.Context, groupID, role string) (int64, error) {
	n, err := s.Memberships.CountByRole(ctx, groupID, role)
	if !s.fired {
		s.fired = true
		s.during()
	}
	return n, err
}

func twoAdminGroup(t *testing.T) (*Service, *memstore.DB, models.Group) {
	t.Helper()
	svc, db := newService(t, nil)
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, "a1", "Familia", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := db.Memberships.Add(ctx, g.ID, "a2", models.RoleAdmin, now.Add(-time.Hour)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return svc, db, g
}

func TestSetMemberRole_ConcurrentDemotionKeepsAnAdmin(t *testing.T) {
	svc, db, g := twoAdminGroup(t)
	ctx := context.Background()
	svc.d.Memberships = &staleAdminCount{Memberships: db.Memberships, during: func() {
		// a2 demotes a1 while a1 is demoting a2.
		if err := db.Memberships.SetRole(ctx, g.ID, "a1", models.RoleMember); err != nil {
			t.Fatalf("SetRole: %v", err)
		}
	}}

	wantKind(t, svc.SetMemberRole(ctx, g.ID, "a1", "a2", models.RoleMember), apperr.KindConflict)

	gm, err := db.Memberships.Get(ctx, g.ID, "a2")
	if err != nil || gm.Role != models.RoleAdmin {
		t.Errorf("a2 = %+v, %v; want admin restored", gm, err)
	}
	n, _ := db.Memberships.CountByRole(ctx, g.ID, models.RoleAdmin)
	if n != 1 {
		t.Errorf("admins = %d, want 1", n)
	}
}

func TestRemoveMember_ConcurrentRemovalKeepsAnAdmin(t *testing.T) {
	svc, db, g := twoAdminGroup(t)
	ctx := context.Background()
	svc.d.Memberships = &staleAdminCount{Memberships: db.Memberships, during: func() {
		if err := db.Memberships.SetRole(ctx, g.ID, "a1", models.RoleMember); err != nil {
			t.Fatalf("SetRole: %v", err)
		}
	}}

	wantKind(t, svc.RemoveMember(ctx, g.ID, "a1", "a2"), apperr.KindConflict)

	gm, err := db.Memberships.Get(ctx, g.ID, "a2")
	if err != nil {
		t.Fatalf("a2 should be back in the group: %v", err)
	}
	if gm.Role != models.RoleAdmin || !gm.JoinedAt.Equal(now.Add(-time.Hour)) {
		t.Errorf("a2 = %+v, want admin with original joined_at", gm)
	}
}
