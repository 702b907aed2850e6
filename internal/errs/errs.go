// Package errs defines the error kinds every business operation reports.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindForbiddenTransition
	KindPermissionDenied
	KindNotFound
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindForbiddenTransition:
		return "forbidden_transition"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a rejected operation. Key names the JSON field the message is
// rendered under; Fields carries per-field validation detail.
type Error struct {
	Kind   Kind
	Msg    string
	Key    string
	Fields map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s %v", e.Kind, e.Msg, e.Fields)
}

// WithKey returns a copy rendered under key instead of "error".
func (e *Error) WithKey(key string) *Error {
	cp := *e
	cp.Key = key
	return &cp
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Key: "error"}
}

func Validation(msg string) *Error { return newError(KindValidation, msg) }

// ValidationField reports a single invalid field.
func ValidationField(field, msg string) *Error {
	e := newError(KindValidation, msg)
	e.Fields = map[string]string{field: msg}
	return e
}

func ValidationFields(fields map[string]string) *Error {
	e := newError(KindValidation, "invalid params")
	e.Fields = fields
	return e
}

func Conflict(msg string) *Error            { return newError(KindConflict, msg) }
func ForbiddenTransition(msg string) *Error { return newError(KindForbiddenTransition, msg) }
func PermissionDenied(msg string) *Error    { return newError(KindPermissionDenied, msg) }
func Unauthorized(msg string) *Error        { return newError(KindUnauthorized, msg) }

func NotFound(msg string) *Error {
	e := newError(KindNotFound, msg)
	e.Key = "detail"
	return e
}

// As unwraps err to an *Error when one is in the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, KindInternal for anything unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
