package policy

import (
	"testing"

	"community_hub/internal/model"
)

func TestScopeFor(t *testing.T) {
	s := ScopeFor(staff, ViewManaged)
	if !s.Unrestricted {
		t.Fatal("staff management view is unrestricted")
	}
	s = ScopeFor(staff, ViewMember)
	if s.Unrestricted || s.UserID != staff.UserID {
		t.Fatalf("personal views stay personal for staff: %+v", s)
	}
	s = ScopeFor(member, ViewManaged)
	if s.Unrestricted || len(s.Roles) != 2 {
		t.Fatalf("unexpected managed scope %+v", s)
	}
	s = ScopeFor(member, ViewOwn)
	if !s.ByRowOwner {
		t.Fatalf("own view matches on row owner: %+v", s)
	}
}

func TestScopeMatch(t *testing.T) {
	memberships := []model.CommunityMembership{
		{UserID: 3, CommunityID: 10, Role: model.RoleMember},
		{UserID: 3, CommunityID: 11, Role: model.RoleManager},
		{UserID: 9, CommunityID: 12, Role: model.RoleOwner},
	}

	managed := ScopeFor(member, ViewManaged)
	if managed.Match(Row{CommunityID: 10}, memberships) {
		t.Fatal("member role grants no management visibility")
	}
	if !managed.Match(Row{CommunityID: 11}, memberships) {
		t.Fatal("manager role grants management visibility")
	}
	if managed.Match(Row{CommunityID: 12}, memberships) {
		t.Fatal("other users' memberships never match")
	}

	mine := ScopeFor(member, ViewMember)
	if !mine.Match(Row{CommunityID: 10}, memberships) || !mine.Match(Row{CommunityID: 11}, memberships) {
		t.Fatal("any membership matches the member view")
	}

	own := ScopeFor(member, ViewOwn)
	if !own.Match(Row{CommunityID: 99, UserID: 3}, nil) {
		t.Fatal("own rows match without memberships")
	}
	if own.Match(Row{CommunityID: 10, UserID: 4}, memberships) {
		t.Fatal("other users' rows never match the own view")
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	memberships := []model.CommunityMembership{
		{UserID: 3, CommunityID: 2, Role: model.RoleOwner},
		{UserID: 3, CommunityID: 4, Role: model.RoleManager},
	}
	rows := []uint64{5, 4, 3, 2, 1}
	got := Filter(ScopeFor(member, ViewManaged), rows, func(id uint64) Row { return Row{CommunityID: id} }, memberships)
	if len(got) != 2 || got[0] != 4 || got[1] != 2 {
		t.Fatalf("unexpected filter result %v", got)
	}
}
