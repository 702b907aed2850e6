package service

import (
	"context"
	"testing"

	"community_hub/internal/errs"
	"community_hub/internal/model"
	"community_hub/internal/repository/mysql"
)

func TestValidateSlug(t *testing.T) {
	cases := []struct {
		slug string
		ok   bool
	}{
		{"abc", false},
		{"ab-cd", true},
		{"Ab-cd", false},
		{"", false},
		{"has space", false},
		{"abcdefghijklmnopqrstu", false},
		{"community-hub", true},
	}
	for _, tc := range cases {
		err := ValidateSlug(tc.slug)
		if tc.ok && err != nil {
			t.Errorf("slug %q: unexpected error %v", tc.slug, err)
		}
		if !tc.ok {
			if e := requireKindNoFatal(err, errs.KindValidation); e == nil || e.Fields["slug"] == "" {
				t.Errorf("slug %q: expected slug validation error, got %v", tc.slug, err)
			}
		}
	}
}

func requireKindNoFatal(err error, kind errs.Kind) *errs.Error {
	e, ok := errs.As(err)
	if !ok || e.Kind != kind {
		return nil
	}
	return e
}

func TestCreateCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)

	v := f.community(t, a, "test-comm", true)
	if v.TotalParticipants != 1 {
		t.Fatalf("owner is the first participant, got %d", v.TotalParticipants)
	}
	role, err := f.members.RoleOf(ctx, a.UserID, v.ID)
	if err != nil || role != model.RoleOwner {
		t.Fatalf("creator becomes owner, got %q %v", role, err)
	}

	_, err = f.communities.Create(ctx, a, CreateCommunityInput{Slug: "test-comm", Name: "dup"})
	e := requireKind(t, err, errs.KindValidation)
	if e.Fields["slug"] != "community with this slug already exists." {
		t.Fatalf("unexpected duplicate slug message %+v", e.Fields)
	}
	if n := countRows(t, f.db, &model.Community{}, "slug = ?", "test-comm"); n != 1 {
		t.Fatalf("failed create leaves no rows, got %d", n)
	}

	_, err = f.communities.Create(ctx, a, CreateCommunityInput{Slug: "ab-cd", Name: "  "})
	requireKind(t, err, errs.KindValidation)
}

func TestCreateCommunityOnBehalf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	f.user(t, "bobby", false)
	staff := f.user(t, "admin", true)

	_, err := f.communities.Create(ctx, a, CreateCommunityInput{Slug: "for-bob", Name: "x", Owner: "bobby"})
	requireKind(t, err, errs.KindPermissionDenied)

	v, err := f.communities.Create(ctx, staff, CreateCommunityInput{Slug: "for-bob", Name: "x", Owner: "bobby"})
	if err != nil {
		t.Fatalf("staff creates on behalf: %v", err)
	}
	var owner model.CommunityMembership
	if err = f.db.Where("community_id = ? AND role = ?", v.ID, model.RoleOwner).First(&owner).Error; err != nil {
		t.Fatalf("find owner: %v", err)
	}
	if owner.UserID == staff.UserID {
		t.Fatal("owner is the named user, not the staff actor")
	}

	_, err = f.communities.Create(ctx, staff, CreateCommunityInput{Slug: "ghost-owner", Name: "x", Owner: "nobody"})
	e := requireKind(t, err, errs.KindValidation)
	if e.Fields["owner"] == "" {
		t.Fatalf("missing owner reported on owner field, got %+v", e.Fields)
	}
}

func TestCreateCommunityRejectsUnknownArea(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "alice", false)
	missing := uint64(999)

	_, err := f.communities.Create(context.Background(), a, CreateCommunityInput{Slug: "no-area", Name: "x", AreaID: &missing})
	e := requireKind(t, err, errs.KindValidation)
	if e.Fields["area"] == "" {
		t.Fatalf("expected area field error, got %+v", e.Fields)
	}
}

func TestUpdateCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	b := f.user(t, "bobby", false)
	f.community(t, a, "test-comm", false)

	slug := "new-slug"
	_, err := f.communities.Update(ctx, a, "test-comm", UpdateCommunityInput{Slug: &slug})
	e := requireKind(t, err, errs.KindValidation)
	if e.Fields["slug"] != "slug is immutable" {
		t.Fatalf("unexpected slug error %+v", e.Fields)
	}

	name := "Renamed"
	published := true
	v, err := f.communities.Update(ctx, a, "test-comm", UpdateCommunityInput{Name: &name, IsPublished: &published})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v.Name != "Renamed" || !v.IsPublished || v.Slug != "test-comm" {
		t.Fatalf("unexpected view %+v", v)
	}

	// 范围外的社区与不存在无法区分
	_, err = f.communities.Update(ctx, b, "test-comm", UpdateCommunityInput{Name: &name})
	requireKind(t, err, errs.KindNotFound)
}

func TestDeactivateOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	m := f.user(t, "manny", false)
	v := f.community(t, a, "test-comm", true)
	if _, err := f.members.AddMember(ctx, a, "test-comm", "manny", model.RoleManager); err != nil {
		t.Fatalf("add manager: %v", err)
	}

	requireKind(t, f.communities.Deactivate(ctx, m, "test-comm"), errs.KindPermissionDenied)
	if err := f.communities.Deactivate(ctx, a, "test-comm"); err != nil {
		t.Fatalf("owner deactivates: %v", err)
	}

	_, err := f.communities.PublicDetail(ctx, a, "test-comm")
	requireKind(t, err, errs.KindNotFound)

	got, err := f.communities.ManageDetail(ctx, a, "test-comm")
	if err != nil {
		t.Fatalf("owner still manages a deactivated community: %v", err)
	}
	if got.IsActive || got.ID != v.ID {
		t.Fatalf("expected inactive community, got %+v", got)
	}
}

// 管理员能看到全部社区；只有 member 角色的用户管理列表为空，但“我的社区”非空
func TestManageListVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	b := f.user(t, "bobby", false)
	staff := f.user(t, "admin", true)
	f.community(t, a, "test-comm", true)
	f.community(t, a, "other-comm", false)

	if _, err := f.members.AddMember(ctx, a, "test-comm", "bobby", model.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	res, err := f.communities.ManageList(ctx, staff, ManageFilter{}, mysql.Page{})
	if err != nil {
		t.Fatalf("staff manage list: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("staff sees every community, got %d", res.Total)
	}

	res, err = f.communities.ManageList(ctx, b, ManageFilter{}, mysql.Page{})
	if err != nil {
		t.Fatalf("member manage list: %v", err)
	}
	if res.Total != 0 || len(res.List) != 0 {
		t.Fatalf("member role grants no management visibility, got %d", res.Total)
	}

	mine, err := f.communities.Mine(ctx, b, PublicFilter{}, mysql.Page{})
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if mine.Total != 1 || mine.List[0].Slug != "test-comm" || !mine.List[0].IsMember {
		t.Fatalf("unexpected my communities %+v", mine)
	}

	summary, err := f.communities.ManageSummary(ctx, b)
	if err != nil || len(summary) != 0 {
		t.Fatalf("member summary is empty, got %v %v", summary, err)
	}
	summary, err = f.communities.ManageSummary(ctx, a)
	if err != nil || len(summary) != 2 {
		t.Fatalf("owner summary lists both, got %v %v", summary, err)
	}
}

func TestPublicListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	b := f.user(t, "bobby", false)
	north := f.area(t, "North", "Lahore")
	south := f.area(t, "South", "Karachi")

	for _, in := range []CreateCommunityInput{
		{Slug: "chess-club", Name: "Chess", Description: "board games", IsPublished: true, AreaID: &north.ID},
		{Slug: "go-club", Name: "Go", Description: "more board games", IsPublished: true, AreaID: &south.ID},
		{Slug: "hidden-club", Name: "Hidden", Description: "board games", IsPublished: false, AreaID: &north.ID},
	} {
		if _, err := f.communities.Create(ctx, a, in); err != nil {
			t.Fatalf("create %s: %v", in.Slug, err)
		}
	}

	res, err := f.communities.PublicList(ctx, b, PublicFilter{Search: "board"}, mysql.Page{})
	if err != nil {
		t.Fatalf("public list: %v", err)
	}
	if res.Total != 2 || res.List[0].Slug != "chess-club" {
		t.Fatalf("published only, creation order, got %+v", res.List)
	}

	res, err = f.communities.PublicList(ctx, b, PublicFilter{City: "Karachi"}, mysql.Page{})
	if err != nil || res.Total != 1 || res.List[0].AreaName != "South" {
		t.Fatalf("city filter: %+v %v", res, err)
	}
	res, err = f.communities.PublicList(ctx, b, PublicFilter{AreaName: "North"}, mysql.Page{})
	if err != nil || res.Total != 1 || res.List[0].Slug != "chess-club" {
		t.Fatalf("area filter: %+v %v", res, err)
	}

	if _, err = f.joinRequests.Submit(ctx, b, "go-club"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	res, _ = f.communities.PublicList(ctx, b, PublicFilter{City: "Karachi"}, mysql.Page{})
	if st := res.List[0].JoinStatus; st == nil || *st != model.JoinPending || res.List[0].IsMember {
		t.Fatalf("list carries the caller's join status, got %+v", res.List[0])
	}
}

func TestCommunityDetailRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	m := f.user(t, "manny", false)
	b := f.user(t, "bobby", false)
	f.community(t, a, "test-comm", true)
	f.community(t, a, "draft-comm", false)
	if _, err := f.members.AddMember(ctx, a, "test-comm", "manny", model.RoleManager); err != nil {
		t.Fatalf("add manager: %v", err)
	}

	if _, err := f.communities.GetDetail(ctx, b, "test-comm"); err != nil {
		t.Fatalf("published detail readable by anyone: %v", err)
	}
	_, err := f.communities.GetDetail(ctx, b, "draft-comm")
	requireKind(t, err, errs.KindNotFound)

	_, err = f.communities.UpdateDetail(ctx, m, "test-comm", "info", "rules")
	requireKind(t, err, errs.KindPermissionDenied)

	d, err := f.communities.UpdateDetail(ctx, a, "test-comm", "info", "rules")
	if err != nil {
		t.Fatalf("owner updates detail: %v", err)
	}
	if d.AdditionalInfo != "info" || d.Rules != "rules" {
		t.Fatalf("unexpected detail %+v", d)
	}
}

func TestStaffOverrideManagesAnyCommunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	staff := f.user(t, "admin", true)
	v := f.community(t, a, "test-comm", true)

	name := "By staff"
	if _, err := f.communities.Update(ctx, staff, "test-comm", UpdateCommunityInput{Name: &name}); err != nil {
		t.Fatalf("staff override: %v", err)
	}
	if err := f.communities.Deactivate(ctx, staff, "test-comm"); err != nil {
		t.Fatalf("staff deactivates: %v", err)
	}
	// 管理员不会因此成为成员
	role, _ := f.members.RoleOf(ctx, staff.UserID, v.ID)
	if role != model.RoleNone {
		t.Fatalf("staff gets no implicit membership, got %q", role)
	}
}
