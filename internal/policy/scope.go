package policy

import "community_hub/internal/model"

type View int

const (
	// ViewManaged lists what the caller administers.
	ViewManaged View = iota
	// ViewMember lists communities the caller belongs to.
	ViewMember
	// ViewOwn lists rows the caller created.
	ViewOwn
)

// Scope is the row filter for a list query. Repositories translate it into
// a SQL predicate; Match is the same predicate evaluated in memory.
type Scope struct {
	Unrestricted bool
	UserID       uint64
	// Roles restricts membership-based scopes; empty means any role.
	Roles []model.Role
	// ByRowOwner matches on the row's own user column instead of memberships.
	ByRowOwner bool
}

// ScopeFor builds the filter for a view. The staff override only widens
// management views; personal views stay personal for everyone.
func ScopeFor(actor Actor, view View) Scope {
	switch view {
	case ViewManaged:
		if actor.Privileged() {
			return Scope{Unrestricted: true}
		}
		return Scope{UserID: actor.UserID, Roles: []model.Role{model.RoleOwner, model.RoleManager}}
	case ViewMember:
		return Scope{UserID: actor.UserID}
	default:
		return Scope{UserID: actor.UserID, ByRowOwner: true}
	}
}

// Row is the part of a record a scope looks at.
type Row struct {
	CommunityID uint64
	UserID      uint64
}

func (s Scope) allowsRole(r model.Role) bool {
	if len(s.Roles) == 0 {
		return true
	}
	for _, want := range s.Roles {
		if r == want {
			return true
		}
	}
	return false
}

// Match reports whether row is visible given the caller's memberships.
func (s Scope) Match(row Row, memberships []model.CommunityMembership) bool {
	if s.Unrestricted {
		return true
	}
	if s.ByRowOwner {
		return row.UserID == s.UserID
	}
	for _, m := range memberships {
		if m.UserID == s.UserID && m.CommunityID == row.CommunityID && s.allowsRole(m.Role) {
			return true
		}
	}
	return false
}

// Filter keeps the rows Match accepts, preserving order.
func Filter[T any](s Scope, rows []T, rowOf func(T) Row, memberships []model.CommunityMembership) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if s.Match(rowOf(r), memberships) {
			out = append(out, r)
		}
	}
	return out
}
