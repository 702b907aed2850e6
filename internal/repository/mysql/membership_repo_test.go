package mysql

import (
	"context"
	"errors"
	"testing"

	"community_hub/internal/model"

	"gorm.io/gorm"
)

func TestMembershipOwnerProtected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	c := seedCommunity(t, db, "test-comm", owner.ID, true)

	repo := &MembershipRepository{DB: db}
	m, err := repo.Get(ctx, c.ID, owner.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err = repo.Remove(ctx, m, owner.ID); !errors.Is(err, ErrOwnerProtected) {
		t.Fatalf("expected ErrOwnerProtected on remove, got %v", err)
	}
	if err = repo.UpdateRole(ctx, m, model.RoleMember, owner.ID); !errors.Is(err, ErrOwnerProtected) {
		t.Fatalf("expected ErrOwnerProtected on role change, got %v", err)
	}
	if n, _ := repo.CountByRole(ctx, c.ID, model.RoleOwner); n != 1 {
		t.Fatalf("owner must survive, got %d owners", n)
	}
}

func TestMembershipAddRemove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	user := seedUser(t, db, "member")
	c := seedCommunity(t, db, "test-comm", owner.ID, true)

	repo := &MembershipRepository{DB: db}
	m, err := repo.Add(ctx, c.ID, user.ID, model.RoleMember, owner.ID)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err = repo.Add(ctx, c.ID, user.ID, model.RoleManager, owner.ID); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	if err = repo.UpdateRole(ctx, m, model.RoleManager, owner.ID); err != nil {
		t.Fatalf("update role: %v", err)
	}
	if role, _ := repo.RoleOf(ctx, user.ID, c.ID); role != model.RoleManager {
		t.Fatalf("expected manager, got %q", role)
	}

	rows, total, err := repo.ListByCommunity(ctx, c.ID, Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(rows) != 2 || rows[1].Username != "member" || rows[1].FullName != "member full" {
		t.Fatalf("unexpected member rows %d %+v", total, rows)
	}

	if err = repo.Remove(ctx, m, owner.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if role, _ := repo.RoleOf(ctx, user.ID, c.ID); role != model.RoleNone {
		t.Fatalf("expected no role after removal, got %q", role)
	}
	if err = repo.Remove(ctx, m, owner.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("removing twice reports not found, got %v", err)
	}
	if got := countOutbox(t, db, model.EventMembershipRemoved); got != 1 {
		t.Fatalf("expected one membership.removed event, got %d", got)
	}
}

func TestMembershipJoinIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	user := seedUser(t, db, "member")
	c := seedCommunity(t, db, "test-comm", owner.ID, true)

	repo := &MembershipRepository{DB: db}
	created, err := repo.Join(ctx, c.ID, user.ID, model.RoleMember, owner.ID)
	if err != nil || !created {
		t.Fatalf("first join creates: %v %v", created, err)
	}
	created, err = repo.Join(ctx, c.ID, user.ID, model.RoleMember, owner.ID)
	if err != nil || created {
		t.Fatalf("second join is a no-op: %v %v", created, err)
	}
	roles, err := repo.Roles(ctx, user.ID, []uint64{c.ID, c.ID + 100})
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if len(roles) != 1 || roles[c.ID] != model.RoleMember {
		t.Fatalf("unexpected roles %v", roles)
	}
}
