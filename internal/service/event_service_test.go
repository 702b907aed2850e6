package service

import (
	"context"
	"testing"

	"community_hub/internal/errs"
	"community_hub/internal/model"
	"community_hub/internal/policy"
	"community_hub/internal/repository/mysql"

	"github.com/shopspring/decimal"
)

func fee(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (f *fixture) paidEvent(t *testing.T, actor policy.Actor, slug string) *model.Event {
	t.Helper()
	e, err := f.events.Create(context.Background(), actor, slug, EventInput{Name: "Meetup", Fees: fee("12.50")})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return e
}

func TestValidateFees(t *testing.T) {
	cases := []struct {
		name   string
		free   bool
		fees   *decimal.Decimal
		ok     bool
		expect string
	}{
		{"free clears fees", true, fee("10"), true, ""},
		{"paid without fees", false, nil, false, "Fees are required for paid events."},
		{"zero", false, fee("0"), false, "Fees must be greater than zero."},
		{"negative", false, fee("-1"), false, "Fees must be greater than zero."},
		{"three places", false, fee("1.005"), false, "Ensure that there are no more than 2 decimal places."},
		{"two places", false, fee("99.99"), true, ""},
	}
	for _, tc := range cases {
		got, err := validateFees(tc.free, tc.fees)
		if tc.ok {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			if tc.free && got != nil {
				t.Fatalf("%s: free events carry no fees", tc.name)
			}
			continue
		}
		e, ok := errs.As(err)
		if !ok || e.Fields["fees"] != tc.expect {
			t.Fatalf("%s: expected %q, got %v", tc.name, tc.expect, err)
		}
	}
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	m := f.user(t, "member", false)
	f.community(t, a, "test-comm", true)
	if _, err := f.members.AddMember(ctx, a, "test-comm", "member", model.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	e := f.paidEvent(t, a, "test-comm")
	if e.Currency != model.CurrencyPKR {
		t.Fatalf("currency defaults to PKR, got %q", e.Currency)
	}
	if e.Fees == nil || !e.Fees.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected fees %v", e.Fees)
	}

	_, err := f.events.Create(ctx, a, "test-comm", EventInput{Name: "x", IsFree: true, Currency: "EUR"})
	if e := requireKind(t, err, errs.KindValidation); e.Fields["currency"] == "" {
		t.Fatalf("expected currency error, got %+v", e)
	}
	_, err = f.events.Create(ctx, a, "test-comm", EventInput{Name: "  ", IsFree: true})
	requireKind(t, err, errs.KindValidation)

	// 普通成员不能创建活动
	_, err = f.events.Create(ctx, m, "test-comm", EventInput{Name: "x", IsFree: true})
	if err == nil {
		t.Fatal("members must not create events")
	}
}

func TestEventVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	b := f.user(t, "bob", false)
	f.community(t, a, "hidden", false)
	e := f.paidEvent(t, a, "hidden")

	_, err := f.events.Get(ctx, b, e.ID)
	requireKind(t, err, errs.KindNotFound)
	_, err = f.events.List(ctx, b, "hidden", mysql.Page{})
	requireKind(t, err, errs.KindNotFound)

	if _, err = f.events.Get(ctx, a, e.ID); err != nil {
		t.Fatalf("owner sees unpublished event: %v", err)
	}
	res, err := f.events.List(ctx, a, "hidden", mysql.Page{})
	if err != nil || res.Total != 1 {
		t.Fatalf("owner lists events: %v %+v", err, res)
	}
}

func TestUpdateEventRecomputesFees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	f.community(t, a, "test-comm", true)
	e := f.paidEvent(t, a, "test-comm")

	free := true
	got, err := f.events.Update(ctx, a, e.ID, EventPatch{IsFree: &free})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.IsFree || got.Fees != nil {
		t.Fatalf("free event keeps no fees: %+v", got)
	}

	paid := false
	_, err = f.events.Update(ctx, a, e.ID, EventPatch{IsFree: &paid})
	if e := requireKind(t, err, errs.KindValidation); e.Fields["fees"] == "" {
		t.Fatalf("switching to paid needs fees, got %+v", e)
	}
	got, err = f.events.Update(ctx, a, e.ID, EventPatch{IsFree: &paid, Fees: fee("5")})
	if err != nil || got.IsFree || got.Fees == nil {
		t.Fatalf("paid update: %v %+v", err, got)
	}
}

func TestDeleteEventOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	mgr := f.user(t, "manny", false)
	b := f.user(t, "bob", false)
	f.community(t, a, "test-comm", true)
	if _, err := f.members.AddMember(ctx, a, "test-comm", "manny", model.RoleManager); err != nil {
		t.Fatalf("add manager: %v", err)
	}
	e := f.paidEvent(t, mgr, "test-comm")
	if _, err := f.events.Register(ctx, b, e.ID); err != nil {
		t.Fatalf("register: %v", err)
	}

	requireKind(t, f.events.Delete(ctx, mgr, e.ID), errs.KindPermissionDenied)
	if err := f.events.Delete(ctx, a, e.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if n := countRows(t, f.db, &model.EventRegistration{}, "event_id = ?", e.ID); n != 0 {
		t.Fatalf("registrations removed with the event, got %d", n)
	}
	_, err := f.events.Get(ctx, a, e.ID)
	requireKind(t, err, errs.KindNotFound)
}

func TestCollaborationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	b := f.user(t, "bob", false)
	f.community(t, a, "host", true)
	f.community(t, b, "guest", true)
	e := f.paidEvent(t, a, "host")

	_, err := f.events.RequestCollaboration(ctx, a, e.ID, "host")
	if e := requireKind(t, err, errs.KindValidation); e.Fields["collaborating_community"] == "" {
		t.Fatalf("organizer cannot collaborate with itself: %+v", e)
	}
	_, err = f.events.RequestCollaboration(ctx, a, e.ID, "nope")
	requireKind(t, err, errs.KindValidation)

	c, err := f.events.RequestCollaboration(ctx, a, e.ID, "guest")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if c.Status != model.CollabPending {
		t.Fatalf("new collaboration is pending, got %s", c.Status)
	}
	_, err = f.events.RequestCollaboration(ctx, a, e.ID, "guest")
	requireKind(t, err, errs.KindConflict)

	// 只有被邀请社区的管理者可以回应
	_, err = f.events.RespondCollaboration(ctx, a, e.ID, c.ID, model.CollabAccepted)
	if err == nil {
		t.Fatal("organizer must not accept on behalf of the guest")
	}
	_, err = f.events.RespondCollaboration(ctx, b, e.ID, c.ID, model.CollabCanceled)
	requireKind(t, err, errs.KindValidation)

	if _, err = f.events.RespondCollaboration(ctx, b, e.ID, c.ID, model.CollabAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	_, err = f.events.RespondCollaboration(ctx, b, e.ID, c.ID, model.CollabRejected)
	if e := requireKind(t, err, errs.KindConflict); e.Msg != "Collaboration is already accepted." {
		t.Fatalf("unexpected message %q", e.Msg)
	}

	// 已接受合作的活动出现在合作社区的列表里
	res, err := f.events.List(ctx, b, "guest", mysql.Page{})
	if err != nil || res.Total != 1 || res.List[0].ID != e.ID {
		t.Fatalf("guest lists collaborated event: %v %+v", err, res)
	}

	if _, err = f.events.CancelCollaboration(ctx, a, e.ID, c.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = f.events.CancelCollaboration(ctx, a, e.ID, c.ID)
	requireKind(t, err, errs.KindConflict)
	res, err = f.events.List(ctx, b, "guest", mysql.Page{})
	if err != nil || res.Total != 0 {
		t.Fatalf("canceled collaboration leaves the list: %v %+v", err, res)
	}

	list, err := f.events.ListCollaborations(ctx, b, e.ID)
	if err != nil || len(list) != 1 || list[0].Status != model.CollabCanceled {
		t.Fatalf("collaborations: %v %+v", err, list)
	}
}

func TestRegisterOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice", false)
	b := f.user(t, "bob", false)
	f.community(t, a, "test-comm", true)
	paid := f.paidEvent(t, a, "test-comm")
	free, err := f.events.Create(ctx, a, "test-comm", EventInput{Name: "Picnic", IsFree: true})
	if err != nil {
		t.Fatalf("free event: %v", err)
	}

	reg, err := f.events.Register(ctx, b, paid.ID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.PaymentStatus != model.PaymentPending {
		t.Fatalf("paid registration starts pending, got %s", reg.PaymentStatus)
	}
	_, err = f.events.Register(ctx, b, paid.ID)
	if e := requireKind(t, err, errs.KindConflict); e.Msg != "You are already registered for this event." {
		t.Fatalf("unexpected message %q", e.Msg)
	}

	reg, err = f.events.Register(ctx, b, free.ID)
	if err != nil || reg.PaymentStatus != model.PaymentNotApplicable {
		t.Fatalf("free registration: %v %+v", err, reg)
	}

	_, err = f.events.ListRegistrations(ctx, b, paid.ID, mysql.Page{})
	requireKind(t, err, errs.KindPermissionDenied)
	rows, err := f.events.ListRegistrations(ctx, a, paid.ID, mysql.Page{})
	if err != nil || rows.Total != 1 || rows.List[0].Username != "bob" {
		t.Fatalf("registrations: %v %+v", err, rows)
	}
}
