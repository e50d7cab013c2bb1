package groups_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/dalemusser/alcancia/internal/app/features/groups"
	"github.com/dalemusser/alcancia/internal/app/onboarding"
	"github.com/dalemusser/alcancia/internal/app/policy/grouppolicy"
	"github.com/dalemusser/alcancia/internal/app/system/codegen"
	"github.com/dalemusser/alcancia/internal/domain/models"
	"github.com/dalemusser/alcancia/internal/testutil"
	"github.com/dalemusser/alcancia/internal/testutil/memstore"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (http.Handler, *memstore.DB) {
	t.Helper()
	db := memstore.New()
	svc := onboarding.New(onboarding.Deps{
		Users:       db.Users,
		Groups:      db.Groups,
		Memberships: db.Memberships,
		Tags:        codegen.New(db.Groups, db.Users),
		Policy:      grouppolicy.New(db.Memberships),
	}, zap.NewNop())
	h := groups.NewHandler(svc, zap.NewNop())
	return testutil.Router(func(r chi.Router) { groups.MountRoutes(r, h) }), db
}

func TestGroupLifecycle(t *testing.T) {
	r, db := newRouter(t)
	db.Users.Put(models.User{ID: "ana", Tag: "@ana0001", Name: "Ana"})
	db.Users.Put(models.User{ID: "beto", Tag: "@beto0001", Name: "Beto"})

	rec := testutil.Do(t, r, "POST", "/groups", "ana", map[string]string{"name": "Familia", "description": "Ahorro <i>común</i>"})
	testutil.WantStatus(t, rec, http.StatusCreated)
	var g models.Group
	testutil.DecodeJSON(t, rec, &g)
	if len(g.Tag) != codegen.GroupTagLength || g.Description != "Ahorro común" {
		t.Fatalf("created group = %+v", g)
	}

	rec = testutil.Do(t, r, "GET", "/groups/by-tag/"+strings.ToLower(g.Tag), "beto", nil)
	testutil.WantStatus(t, rec, http.StatusOK)

	if _, err := db.Memberships.Add(context.Background(), g.ID, "beto", models.RoleMember, g.CreatedAt); err != nil {
		t.Fatalf("add member: %v", err)
	}

	rec = testutil.Do(t, r, "GET", "/groups", "beto", nil)
	testutil.WantStatus(t, rec, http.StatusOK)
	var mine []onboarding.MyGroup
	testutil.DecodeJSON(t, rec, &mine)
	if len(mine) != 1 || mine[0].Group.ID != g.ID || mine[0].Role != models.RoleMember {
		t.Errorf("GET /groups = %+v", mine)
	}

	rec = testutil.Do(t, r, "GET", "/groups/"+g.ID+"/members", "beto", nil)
	testutil.WantStatus(t, rec, http.StatusOK)
	var members []onboarding.Member
	testutil.DecodeJSON(t, rec, &members)
	if len(members) != 2 || members[0].UserID != "ana" || members[0].User == nil || members[0].User.Name != "Ana" {
		t.Errorf("members = %+v, want ana (admin) first with profile", members)
	}

	rolePath := "/groups/" + g.ID + "/members/beto/role"
	rec = testutil.Do(t, r, "POST", rolePath, "beto", map[string]string{"role": "admin"})
	testutil.WantStatus(t, rec, http.StatusForbidden)

	rec = testutil.Do(t, r, "POST", rolePath, "ana", map[string]string{"role": "admin"})
	testutil.WantStatus(t, rec, http.StatusNoContent)
	m, err := db.Memberships.Get(context.Background(), g.ID, "beto")
	if err != nil || m.Role != models.RoleAdmin {
		t.Errorf("beto role = %q (%v), want admin", m.Role, err)
	}

	rec = testutil.Do(t, r, "POST", rolePath, "ana", map[string]string{"role": "owner"})
	testutil.WantStatus(t, rec, http.StatusBadRequest)

	rec = testutil.Do(t, r, "DELETE", "/groups/"+g.ID+"/members/beto", "beto", nil)
	testutil.WantStatus(t, rec, http.StatusNoContent)
	if _, err := db.Memberships.Get(context.Background(), g.ID, "beto"); err == nil {
		t.Error("beto is still a member after leaving")
	}

	rec = testutil.Do(t, r, "DELETE", "/groups/"+g.ID+"/members/ana", "ana", nil)
	testutil.WantStatus(t, rec, http.StatusBadRequest)
}

func TestGroupErrors(t *testing.T) {
	r, _ := newRouter(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unnamed group", "POST", "/groups", map[string]string{"name": "  "}, http.StatusBadRequest},
		{"unknown tag", "GET", "/groups/by-tag/ZZZZZZ", nil, http.StatusNotFound},
		{"members of foreign group", "GET", "/groups/g404/members", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.WantStatus(t, testutil.Do(t, r, tt.method, tt.path, "ana", tt.body), tt.status)
		})
	}

	rec := testutil.Do(t, r, "GET", "/groups", "ana", nil)
	testutil.WantStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("GET /groups with no memberships = %s, want []", rec.Body.String())
	}
}
