package policy

import (
	"context"

	"community_hub/internal/model"
)

type Decision int

const (
	Abstain Decision = iota
	Allow
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "abstain"
	}
}

// Input is what a rule sees. Role is resolved lazily and at most once.
type Input struct {
	Actor       Actor
	Op          Operation
	CommunityID uint64

	roleFn   func() (model.Role, error)
	role     model.Role
	resolved bool
}

func NewInput(actor Actor, op Operation, communityID uint64, roleFn func() (model.Role, error)) *Input {
	return &Input{Actor: actor, Op: op, CommunityID: communityID, roleFn: roleFn}
}

func (in *Input) Role() (model.Role, error) {
	if in.resolved {
		return in.role, nil
	}
	if in.roleFn == nil || !in.Actor.Authenticated() || in.CommunityID == 0 {
		in.resolved = true
		return model.RoleNone, nil
	}
	r, err := in.roleFn()
	if err != nil {
		return model.RoleNone, err
	}
	in.role, in.resolved = r, true
	return r, nil
}

type Rule struct {
	Name   string
	Decide func(in *Input) (Decision, error)
}

// Policy is an ordered rule chain.
type Policy []Rule

func (p Policy) Evaluate(in *Input) (Decision, error) {
	for _, rule := range p {
		d, err := rule.Decide(in)
		if err != nil {
			return Deny, err
		}
		if d != Abstain {
			return d, nil
		}
	}
	return Deny, nil
}

var StaffOverride = Rule{
	Name: "StaffOverride",
	Decide: func(in *Input) (Decision, error) {
		if in.Actor.Privileged() {
			return Allow, nil
		}
		return Abstain, nil
	},
}

var Authenticated = Rule{
	Name: "Authenticated",
	Decide: func(in *Input) (Decision, error) {
		if in.Actor.Authenticated() {
			return Allow, nil
		}
		return Deny, nil
	},
}

var OwnerOrManager = Rule{
	Name: "OwnerOrManager",
	Decide: func(in *Input) (Decision, error) {
		role, err := in.Role()
		if err != nil {
			return Deny, err
		}
		if role == model.RoleOwner || role == model.RoleManager {
			return Allow, nil
		}
		return Deny, nil
	},
}

var OwnerOnly = Rule{
	Name: "OwnerOnly",
	Decide: func(in *Input) (Decision, error) {
		role, err := in.Role()
		if err != nil {
			return Deny, err
		}
		if role == model.RoleOwner {
			return Allow, nil
		}
		return Deny, nil
	},
}

var ReadOnlyOrOwner = Rule{
	Name: "ReadOnlyOrOwner",
	Decide: func(in *Input) (Decision, error) {
		if in.Op.Safe() {
			return Allow, nil
		}
		return OwnerOnly.Decide(in)
	},
}

// RoleLookup resolves a user's role in a community, RoleNone when absent.
// RoleOf may be served from a cache; FreshRoleOf always reads the source of
// truth and is used for mutating operations.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID, communityID uint64) (model.Role, error)
	FreshRoleOf(ctx context.Context, userID, communityID uint64) (model.Role, error)
}
