// Package policy decides who may do what to which community.
//
// Every mutating or scoped-read operation is resolved once against Table,
// which maps an (Operation, Resource) pair to an ordered rule chain. The
// first rule that allows or denies wins; a chain that only abstains denies.
package policy

// Actor is the authenticated caller.
type Actor struct {
	UserID      uint64
	IsStaff     bool
	IsSuperuser bool
}

// Privileged reports whether the global staff override applies.
func (a Actor) Privileged() bool {
	return a.IsStaff || a.IsSuperuser
}

func (a Actor) Authenticated() bool {
	return a.UserID != 0
}
