package identity

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

func newTestService(opts ...wallet.Option) (*Service, *wallet.MemoryRepository) {
	wallets := wallet.NewMemoryRepository()
	walletSvc := wallet.NewService(wallets, opts...)
	return NewService(NewMemoryRepository(wallets), walletSvc, WithBcryptCost(bcrypt.MinCost)), wallets
}

func TestRegisterCreatesUserAndWallet(t *testing.T) {
	svc, wallets := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: " Ada@Example.com ", Password: "correct horse", Name: "Ada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ada@example.com" || user.Role != RoleUser {
		t.Fatalf("unexpected user %+v", user)
	}
	if string(user.PasswordHash) == "correct horse" {
		t.Fatal("password stored in clear text")
	}

	w, err := wallets.GetByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("wallet for new user: %v", err)
	}
	if w.Balance != 0 || !wallet.ValidWalletNumber(w.WalletNumber) {
		t.Fatalf("unexpected wallet %+v", w)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	in := RegisterInput{Email: "dup@example.com", Password: "password1"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, in)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterRollsBackWhenWalletNumbersExhausted(t *testing.T) {
	fixed := func() string { return "5555555555" }
	svc, wallets := newTestService(wallet.WithNumberGenerator(fixed), wallet.WithNumberAttempts(2))
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "first@example.com", Password: "password1"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{Email: "second@example.com", Password: "password1"})
	if !apperr.Is(err, apperr.KindInternal) || !errors.Is(err, wallet.ErrWalletNumberExhausted) {
		t.Fatalf("expected internal exhaustion error, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "second@example.com", "password1"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("user must not persist without its wallet, got %v", err)
	}
	if _, err := wallets.GetByNumber(ctx, "5555555555"); err != nil {
		t.Fatalf("first wallet should remain: %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newTestService()
	for _, in := range []RegisterInput{
		{Email: "", Password: "password1"},
		{Email: "a@example.com", Password: "short"},
	} {
		if _, err := svc.Register(context.Background(), in); !apperr.Is(err, apperr.KindBadRequest) {
			t.Fatalf("%+v: expected bad request, got %v", in, err)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	registered, err := svc.Register(ctx, RegisterInput{Email: "login@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Authenticate(ctx, "LOGIN@example.com", "password1")
	if err != nil || user.ID != registered.ID {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "login@example.com", "wrong-password"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for bad password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "password1"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestBumpTokenVersion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{Email: "ver@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	bumped, err := svc.BumpTokenVersion(ctx, user.ID)
	if err != nil || bumped.TokenVersion != 1 {
		t.Fatalf("bump: version=%d err=%v", bumped.TokenVersion, err)
	}
	if _, err := svc.FindByID(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
