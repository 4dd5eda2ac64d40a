package wallet

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "50", want: 5000},
		{in: "0.01", want: 1},
		{in: "12.34", want: 1234},
		{in: "0.001", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "99999999999999999", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ToMinorUnits(decimal.RequireFromString(tc.in))
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%s: expected invalid amount, got %d (%v)", tc.in, got, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%s: expected %d, got %d (%v)", tc.in, tc.want, got, err)
		}
	}
}

func TestFromMinorUnits(t *testing.T) {
	if got := FromMinorUnits(250).String(); got != "2.5" {
		t.Fatalf("expected 2.5, got %s", got)
	}
}

func TestValidWalletNumber(t *testing.T) {
	for i := 0; i < 100; i++ {
		if n := RandomNumber(); !ValidWalletNumber(n) {
			t.Fatalf("random number %q is not a wallet number", n)
		}
	}
	for _, bad := range []string{"", "123", "0123456789", "12345678901", "12345abcde"} {
		if ValidWalletNumber(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
