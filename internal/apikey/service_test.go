package apikey

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService() (*Service, *clock) {
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(NewMemoryRepository(), WithClock(clk.now)), clk
}

func TestCreateAndValidate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	issued, err := svc.Create(ctx, "user-1", CreateInput{Name: "ci", Permissions: []string{"read", "deposit", "read"}, Expiry: "1D"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(issued.Secret, "sk_"))
	assert.Len(t, issued.Secret, len("sk_")+64)
	assert.Equal(t, []string{"deposit", "read"}, issued.Key.Permissions)
	assert.NotContains(t, issued.Key.Hash, issued.Secret)

	p, err := svc.Validate(ctx, issued.Secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, access.SourceAPIKey, p.Source)
	assert.Equal(t, issued.Key.ID, p.KeyID)
	assert.True(t, p.HasAll(access.PermRead, access.PermDeposit))
	assert.False(t, p.HasAll(access.PermTransfer))

	keys, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestCreateRejectsBadPermissions(t *testing.T) {
	svc, _ := newTestService()
	cases := map[string][]string{
		"empty":   nil,
		"unknown": {"read", "withdraw"},
		"case":    {"Read"},
	}
	for name, perms := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "k", Permissions: perms, Expiry: "1D"})
			assert.True(t, apperr.Is(err, apperr.KindBadRequest), "got %v", err)
		})
	}
}

func TestCreateRejectsBadExpiry(t *testing.T) {
	svc, _ := newTestService()
	for _, expiry := range []string{"", "D", "10", "1W", "-1D", "0H"} {
		_, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "k", Permissions: []string{"read"}, Expiry: expiry})
		assert.True(t, apperr.Is(err, apperr.KindBadRequest), "expiry %q: %v", expiry, err)
	}
}

func TestActiveKeyLimit(t *testing.T) {
	svc, clk := newTestService()
	ctx := context.Background()
	var first Issued
	for i := 0; i < MaxActiveKeys; i++ {
		issued, err := svc.Create(ctx, "user-1", CreateInput{Name: "k", Permissions: []string{"read"}, Expiry: "1H"})
		require.NoError(t, err)
		if i == 0 {
			first = issued
		}
	}
	_, err := svc.Create(ctx, "user-1", CreateInput{Name: "k", Permissions: []string{"read"}, Expiry: "1H"})
	require.True(t, apperr.Is(err, apperr.KindBadRequest), "got %v", err)

	_, err = svc.Create(ctx, "user-2", CreateInput{Name: "k", Permissions: []string{"read"}, Expiry: "1H"})
	require.NoError(t, err, "limit is per user")

	require.NoError(t, svc.Revoke(ctx, "user-1", first.Key.ID))
	_, err = svc.Create(ctx, "user-1", CreateInput{Name: "k", Permissions: []string{"read"}, Expiry: "1H"})
	require.NoError(t, err, "revoked keys free a slot")

	clk.advance(2 * time.Hour)
	_, err = svc.Create(ctx, "user-1", CreateInput{Name: "k", Permissions: []string{"read"}, Expiry: "1H"})
	require.NoError(t, err, "expired keys free a slot")
}

func TestValidateRejectsUnusableKeys(t *testing.T) {
	svc, clk := newTestService()
	ctx := context.Background()

	revoked, err := svc.Create(ctx, "user-1", CreateInput{Name: "r", Permissions: []string{"read"}, Expiry: "1D"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, "user-1", revoked.Key.ID))
	_, err = svc.Validate(ctx, revoked.Secret)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "revoked: %v", err)

	expiring, err := svc.Create(ctx, "user-1", CreateInput{Name: "e", Permissions: []string{"read"}, Expiry: "1H"})
	require.NoError(t, err)
	clk.advance(time.Hour)
	_, err = svc.Validate(ctx, expiring.Secret)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "expired: %v", err)

	_, err = svc.Validate(ctx, "sk_"+strings.Repeat("0", 64))
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "unknown: %v", err)
	_, err = svc.Validate(ctx, "not-a-key")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "malformed: %v", err)
}

func TestRevokeOtherUsersKey(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	issued, err := svc.Create(ctx, "user-1", CreateInput{Name: "k", Permissions: []string{"read"}, Expiry: "1D"})
	require.NoError(t, err)
	err = svc.Revoke(ctx, "user-2", issued.Key.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
	_, err = svc.Validate(ctx, issued.Secret)
	assert.NoError(t, err)
}

func TestRotate(t *testing.T) {
	svc, clk := newTestService()
	ctx := context.Background()
	issued, err := svc.Create(ctx, "user-1", CreateInput{Name: "k", Permissions: []string{"transfer"}, Expiry: "1H"})
	require.NoError(t, err)

	_, err = svc.Rotate(ctx, "user-1", issued.Key.ID, "1D")
	require.True(t, apperr.Is(err, apperr.KindBadRequest), "live key rotated: %v", err)

	clk.advance(90 * time.Minute)
	rotated, err := svc.Rotate(ctx, "user-1", issued.Key.ID, "1D")
	require.NoError(t, err)
	assert.Equal(t, issued.Key.ID, rotated.Key.ID)
	assert.NotEqual(t, issued.Secret, rotated.Secret)
	assert.Equal(t, []string{"transfer"}, rotated.Key.Permissions)

	_, err = svc.Validate(ctx, issued.Secret)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "old secret still valid: %v", err)
	p, err := svc.Validate(ctx, rotated.Secret)
	require.NoError(t, err)
	assert.True(t, p.HasAll(access.PermTransfer))

	require.NoError(t, svc.Revoke(ctx, "user-1", issued.Key.ID))
	clk.advance(48 * time.Hour)
	_, err = svc.Rotate(ctx, "user-1", issued.Key.ID, "1D")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest), "revoked key rotated: %v", err)
}

func TestParseExpiry(t *testing.T) {
	base := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"12H": base.Add(12 * time.Hour),
		"30d": base.AddDate(0, 0, 30),
		"1M":  base.AddDate(0, 1, 0),
		"2Y":  base.AddDate(2, 0, 0),
	}
	for in, want := range cases {
		got, err := ParseExpiry(in, base)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: want %s got %s", in, want, got)
	}
}

func TestParseExpiryRejectsOutOfRange(t *testing.T) {
	base := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"0D", "3000000H", "87601H", "3651D", "121M", "11Y", "99999999999999999999Y"} {
		_, err := ParseExpiry(in, base)
		assert.Error(t, err, in)
	}

	got, err := ParseExpiry("87600H", base)
	require.NoError(t, err)
	assert.True(t, got.After(base))
}
