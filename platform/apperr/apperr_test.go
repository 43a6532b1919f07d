package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusForWorkflowKinds(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("missing"), http.StatusNotFound},
		{Forbidden("nope"), http.StatusForbidden},
		{Validation("bad"), http.StatusBadRequest},
		{IllegalTransition("wrong status"), http.StatusConflict},
		{AlreadyProcessed("done"), http.StatusConflict},
		{Internal("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.err.Kind, tc.want, got)
		}
	}
}

func TestGetKindFollowsWrappedErrors(t *testing.T) {
	base := IllegalTransition("cannot approve").WithOp("interventions.execute")
	wrapped := fmt.Errorf("handler: %w", base)

	if !Is(wrapped, KindIllegalTransition) {
		t.Fatalf("expected wrapped error to keep its kind, got %s", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected plain errors to be unknown")
	}
	if base.Error() != "interventions.execute: cannot approve" {
		t.Fatalf("unexpected message %q", base.Error())
	}
}

func TestKindCodes(t *testing.T) {
	if KindAlreadyProcessed.String() != "already_processed" {
		t.Fatalf("unexpected code %q", KindAlreadyProcessed.String())
	}
	if Kind(99).String() != "unknown" {
		t.Fatalf("unexpected code for unknown kind %q", Kind(99).String())
	}
}
