package validation

import (
	"strings"
	"testing"

	"github.com/congo-pay/congo_wallet/internal/apperr"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Number   int64  `json:"wallet_number" validate:"gt=0"`
}

func TestStructReportsFields(t *testing.T) {
	err := Struct(sample{Email: "nope", Password: "short"})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	msg := apperr.PublicMessage(err)
	for _, want := range []string{"email must be a valid email", "password must be at least 8 characters", "wallet_number must be greater than 0"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestStructAcceptsValid(t *testing.T) {
	if err := Struct(sample{Email: "a@b.co", Password: "longenough", Number: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
