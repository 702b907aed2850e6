package errs

import (
	"testing"

	"github.com/pkg/errors"
)

func TestKindOfWrapped(t *testing.T) {
	base := Conflict("Request already approved")
	wrapped := errors.Wrap(base, "service: resolve")

	if got := KindOf(wrapped); got != KindConflict {
		t.Fatalf("expected conflict, got %s", got)
	}
	e, ok := As(wrapped)
	if !ok {
		t.Fatal("expected *Error in chain")
	}
	if e.Msg != "Request already approved" {
		t.Fatalf("unexpected message %q", e.Msg)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected internal, got %s", got)
	}
	if Is(nil, KindInternal) {
		t.Fatal("nil error must not match any kind")
	}
}

func TestWithKeyCopies(t *testing.T) {
	base := Conflict("dup")
	detail := base.WithKey("detail")
	if base.Key != "error" {
		t.Fatalf("base key mutated: %q", base.Key)
	}
	if detail.Key != "detail" {
		t.Fatalf("expected detail key, got %q", detail.Key)
	}
}

func TestNotFoundRendersUnderDetail(t *testing.T) {
	if NotFound("Not found.").Key != "detail" {
		t.Fatal("not found errors render under detail")
	}
}

func TestValidationField(t *testing.T) {
	e := ValidationField("slug", "too short")
	if e.Kind != KindValidation || e.Fields["slug"] != "too short" {
		t.Fatalf("unexpected error %+v", e)
	}
}
