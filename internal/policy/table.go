package policy

import (
	"context"
	"fmt"

	"community_hub/internal/errs"
	"community_hub/internal/model"

	"github.com/pkg/errors"
)

type Operation string

const (
	OpRead   Operation = "read"
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Safe operations never mutate state.
func (o Operation) Safe() bool {
	return o == OpRead || o == OpList
}

type Resource string

const (
	ResCommunity       Resource = "community"
	ResCommunityDetail Resource = "community_detail"
	ResMembership      Resource = "membership"
	ResJoinRequest     Resource = "join_request"
	ResEvent           Resource = "event"
	ResCollaboration   Resource = "collaboration"
	ResRegistration    Resource = "registration"
	ResPayment         Resource = "payment"
	ResPeople          Resource = "people"
)

type Key struct {
	Op       Operation
	Resource Resource
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Op, k.Resource)
}

type Table map[Key]Policy

// DefaultTable is the complete capability model. The community a rule
// checks against is the one the resource belongs to: the organizer for
// events and registrations, the collaborating community when responding to
// a collaboration request.
func DefaultTable() Table {
	managers := Policy{StaffOverride, OwnerOrManager}
	owners := Policy{StaffOverride, OwnerOnly}
	anyUser := Policy{Authenticated}

	return Table{
		{OpCreate, ResCommunity}: anyUser,
		{OpRead, ResCommunity}:   managers,
		{OpList, ResCommunity}:   anyUser,
		{OpUpdate, ResCommunity}: managers,
		{OpDelete, ResCommunity}: owners,

		{OpRead, ResCommunityDetail}:   {StaffOverride, ReadOnlyOrOwner},
		{OpUpdate, ResCommunityDetail}: {StaffOverride, ReadOnlyOrOwner},

		{OpList, ResMembership}:   managers,
		{OpCreate, ResMembership}: managers,
		{OpUpdate, ResMembership}: managers,
		{OpDelete, ResMembership}: managers,

		{OpCreate, ResJoinRequest}: anyUser,
		{OpList, ResJoinRequest}:   anyUser,
		{OpUpdate, ResJoinRequest}: managers,

		{OpList, ResEvent}:   managers,
		{OpCreate, ResEvent}: managers,
		{OpUpdate, ResEvent}: managers,
		{OpDelete, ResEvent}: owners,

		{OpCreate, ResCollaboration}: managers,
		{OpUpdate, ResCollaboration}: managers,
		{OpDelete, ResCollaboration}: managers,

		{OpCreate, ResRegistration}: anyUser,
		{OpList, ResRegistration}:   managers,

		{OpCreate, ResPayment}: anyUser,
		{OpUpdate, ResPayment}: managers,

		{OpList, ResPeople}: {StaffOverride},
	}
}

type Authorizer struct {
	roles RoleLookup
	table Table
}

func NewAuthorizer(roles RoleLookup) *Authorizer {
	return &Authorizer{roles: roles, table: DefaultTable()}
}

// Decide evaluates the policy for (op, res) against communityID.
func (a *Authorizer) Decide(ctx context.Context, actor Actor, op Operation, res Resource, communityID uint64) (Decision, error) {
	p, ok := a.table[Key{op, res}]
	if !ok {
		return Deny, nil
	}
	in := NewInput(actor, op, communityID, func() (r model.Role, err error) {
		if a.roles == nil {
			return model.RoleNone, nil
		}
		if !op.Safe() {
			return a.roles.FreshRoleOf(ctx, actor.UserID, communityID)
		}
		return a.roles.RoleOf(ctx, actor.UserID, communityID)
	})
	return p.Evaluate(in)
}

// Authorize returns nil when allowed and a PermissionDenied error otherwise.
func (a *Authorizer) Authorize(ctx context.Context, actor Actor, op Operation, res Resource, communityID uint64) error {
	d, err := a.Decide(ctx, actor, op, res, communityID)
	if err != nil {
		return errors.Wrapf(err, "policy: %s", Key{op, res})
	}
	if d != Allow {
		return errs.PermissionDenied("You do not have permission to perform this action.")
	}
	return nil
}
