package policy

import (
	"context"
	"errors"
	"testing"

	"community_hub/internal/errs"
	"community_hub/internal/model"
)

type fakeRoles struct {
	roles map[[2]uint64]model.Role
	err   error
	calls int
	fresh int
}

func (f *fakeRoles) RoleOf(_ context.Context, userID, communityID uint64) (model.Role, error) {
	f.calls++
	if f.err != nil {
		return model.RoleNone, f.err
	}
	return f.roles[[2]uint64{userID, communityID}], nil
}

func (f *fakeRoles) FreshRoleOf(ctx context.Context, userID, communityID uint64) (model.Role, error) {
	f.fresh++
	return f.RoleOf(ctx, userID, communityID)
}

const communityID = 7

var (
	owner    = Actor{UserID: 1}
	manager  = Actor{UserID: 2}
	member   = Actor{UserID: 3}
	stranger = Actor{UserID: 4}
	staff    = Actor{UserID: 5, IsStaff: true}
	super    = Actor{UserID: 6, IsSuperuser: true}
	anon     = Actor{}
)

func newFakeRoles() *fakeRoles {
	return &fakeRoles{roles: map[[2]uint64]model.Role{
		{1, communityID}: model.RoleOwner,
		{2, communityID}: model.RoleManager,
		{3, communityID}: model.RoleMember,
	}}
}

func TestDefaultTableDecisions(t *testing.T) {
	type want struct {
		owner, manager, member, stranger, staff, anon Decision
	}
	managers := want{Allow, Allow, Deny, Deny, Allow, Deny}
	owners := want{Allow, Deny, Deny, Deny, Allow, Deny}
	anyone := want{Allow, Allow, Allow, Allow, Allow, Deny}
	readAll := want{Allow, Allow, Allow, Allow, Allow, Allow}

	expected := map[Key]want{
		{OpCreate, ResCommunity}:       anyone,
		{OpRead, ResCommunity}:         managers,
		{OpList, ResCommunity}:         anyone,
		{OpUpdate, ResCommunity}:       managers,
		{OpDelete, ResCommunity}:       owners,
		{OpRead, ResCommunityDetail}:   readAll,
		{OpUpdate, ResCommunityDetail}: owners,
		{OpList, ResMembership}:        managers,
		{OpCreate, ResMembership}:      managers,
		{OpUpdate, ResMembership}:      managers,
		{OpDelete, ResMembership}:      managers,
		{OpCreate, ResJoinRequest}:     anyone,
		{OpList, ResJoinRequest}:       anyone,
		{OpUpdate, ResJoinRequest}:     managers,
		{OpList, ResEvent}:             managers,
		{OpCreate, ResEvent}:           managers,
		{OpUpdate, ResEvent}:           managers,
		{OpDelete, ResEvent}:           owners,
		{OpCreate, ResCollaboration}:   managers,
		{OpUpdate, ResCollaboration}:   managers,
		{OpDelete, ResCollaboration}:   managers,
		{OpCreate, ResRegistration}:    anyone,
		{OpList, ResRegistration}:      managers,
		{OpCreate, ResPayment}:         anyone,
		{OpUpdate, ResPayment}:         managers,
		{OpList, ResPeople}:            {Deny, Deny, Deny, Deny, Allow, Deny},
	}

	table := DefaultTable()
	if len(table) != len(expected) {
		t.Fatalf("table has %d entries, expected %d", len(table), len(expected))
	}

	a := NewAuthorizer(newFakeRoles())
	ctx := context.Background()
	for key, w := range expected {
		if _, ok := table[key]; !ok {
			t.Fatalf("missing table entry %s", key)
		}
		cases := []struct {
			name  string
			actor Actor
			want  Decision
		}{
			{"owner", owner, w.owner},
			{"manager", manager, w.manager},
			{"member", member, w.member},
			{"stranger", stranger, w.stranger},
			{"staff", staff, w.staff},
			{"superuser", super, w.staff},
			{"anonymous", anon, w.anon},
		}
		for _, c := range cases {
			got, err := a.Decide(ctx, c.actor, key.Op, key.Resource, communityID)
			if err != nil {
				t.Fatalf("%s as %s: %v", key, c.name, err)
			}
			if got != c.want {
				t.Fatalf("%s as %s: got %s, want %s", key, c.name, got, c.want)
			}
		}
	}
}

func TestUnknownKeyDenies(t *testing.T) {
	a := NewAuthorizer(newFakeRoles())
	err := a.Authorize(context.Background(), staff, OpDelete, ResPeople, 0)
	if !errs.Is(err, errs.KindPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestStaffOverrideSkipsRoleLookup(t *testing.T) {
	roles := newFakeRoles()
	a := NewAuthorizer(roles)
	if err := a.Authorize(context.Background(), staff, OpUpdate, ResCommunity, communityID); err != nil {
		t.Fatalf("staff should be allowed: %v", err)
	}
	if roles.calls != 0 {
		t.Fatalf("expected no role lookups, got %d", roles.calls)
	}
}

// 写操作读取最新角色，读操作允许走缓存
func TestMutationsUseFreshRole(t *testing.T) {
	roles := newFakeRoles()
	a := NewAuthorizer(roles)
	ctx := context.Background()
	if err := a.Authorize(ctx, manager, OpList, ResEvent, communityID); err != nil {
		t.Fatalf("list: %v", err)
	}
	if roles.fresh != 0 {
		t.Fatalf("reads may use cached roles, got %d fresh lookups", roles.fresh)
	}
	if err := a.Authorize(ctx, manager, OpUpdate, ResEvent, communityID); err != nil {
		t.Fatalf("update: %v", err)
	}
	if roles.fresh != 1 {
		t.Fatalf("expected 1 fresh lookup for update, got %d", roles.fresh)
	}
}

func TestRoleResolvedOnce(t *testing.T) {
	roles := newFakeRoles()
	calls := 0
	in := NewInput(member, OpUpdate, communityID, func() (model.Role, error) {
		calls++
		return roles.RoleOf(context.Background(), member.UserID, communityID)
	})
	for i := 0; i < 3; i++ {
		if _, err := in.Role(); err != nil {
			t.Fatalf("role: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 lookup, got %d", calls)
	}
}

func TestLookupErrorPropagates(t *testing.T) {
	roles := newFakeRoles()
	roles.err = errors.New("db down")
	a := NewAuthorizer(roles)
	err := a.Authorize(context.Background(), owner, OpUpdate, ResCommunity, communityID)
	if err == nil {
		t.Fatal("expected error")
	}
	if errs.Is(err, errs.KindPermissionDenied) {
		t.Fatal("lookup failures are not permission denials")
	}
}

func TestReadOnlyOrOwner(t *testing.T) {
	in := NewInput(stranger, OpRead, communityID, nil)
	if d, _ := ReadOnlyOrOwner.Decide(in); d != Allow {
		t.Fatalf("safe ops are allowed, got %s", d)
	}
	in = NewInput(stranger, OpUpdate, communityID, func() (model.Role, error) { return model.RoleManager, nil })
	if d, _ := ReadOnlyOrOwner.Decide(in); d != Deny {
		t.Fatalf("managers cannot mutate owner-only resources, got %s", d)
	}
}

func TestEmptyPolicyDenies(t *testing.T) {
	d, err := Policy{}.Evaluate(NewInput(owner, OpRead, 1, nil))
	if err != nil || d != Deny {
		t.Fatalf("expected deny, got %s %v", d, err)
	}
}
