package access

import (
	"context"
	"testing"

	"github.com/congo-pay/congo_wallet/internal/apperr"
)

func TestRequireAllPermissions(t *testing.T) {
	p := NewPrincipal("user-1", SourceAPIKey, PermRead, PermDeposit)

	if err := Require(p, PermRead); err != nil {
		t.Fatalf("read should be granted: %v", err)
	}
	if err := Require(p, PermRead, PermDeposit); err != nil {
		t.Fatalf("read+deposit should be granted: %v", err)
	}
	if err := Require(p, PermRead, PermTransfer); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRequireIsCaseSensitive(t *testing.T) {
	p := NewPrincipal("user-1", SourceAPIKey, "Transfer")
	if err := Require(p, PermTransfer); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for differently cased capability, got %v", err)
	}
}

func TestRequireAnonymous(t *testing.T) {
	if err := Require(Principal{}, PermRead); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSessionCarriesAllCapabilities(t *testing.T) {
	p := SessionPrincipal("user-1", "a@b.co")
	if !p.HasAll(All()...) {
		t.Fatalf("session principal should hold every capability")
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), SessionPrincipal("u", "e"))
	p, ok := FromContext(ctx)
	if !ok || p.UserID != "u" {
		t.Fatalf("principal not found on context")
	}
}
