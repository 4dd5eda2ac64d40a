package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("wallet not found"), http.StatusNotFound},
		{BadRequest("insufficient funds"), http.StatusBadRequest},
		{Unauthorized("invalid token"), http.StatusUnauthorized},
		{Forbidden("invalid signature"), http.StatusForbidden},
		{Conflict("email taken"), http.StatusConflict},
		{Internal(errors.New("boom"), "persist"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("x")), http.StatusNotFound},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"), "load wallet")
	if got := PublicMessage(err); got != "internal server error" {
		t.Fatalf("unexpected public message %q", got)
	}
	if got := PublicMessage(BadRequest("insufficient funds")); got != "insufficient funds" {
		t.Fatalf("unexpected public message %q", got)
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(KindBadRequest, "bad amount", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if !Is(err, KindBadRequest) {
		t.Fatalf("expected bad request kind")
	}
}
