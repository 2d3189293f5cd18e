package questions

import (
	"errors"
	"testing"
)

func TestValidateRegistration(t *testing.T) {
	cases := []struct {
		email, password, confirm string
		want                     error
	}{
		{"a@b.com", "secret1", "secret1", nil},
		{"", "secret1", "secret1", ErrEmailRequired},
		{"not-an-email", "secret1", "secret1", ErrInvalidEmail},
		{"a@b.com", "", "", ErrPasswordRequired},
		{"a@b.com", "12345", "12345", ErrPasswordTooShort},
		{"a@b.com", "secret1", "secret2", ErrPasswordMismatch},
	}
	for _, tc := range cases {
		if got := ValidateRegistration(tc.email, tc.password, tc.confirm); !errors.Is(got, tc.want) {
			t.Errorf("ValidateRegistration(%q, %q, %q) = %v, want %v", tc.email, tc.password, tc.confirm, got, tc.want)
		}
	}
}

func TestValidateCredentialsTrimsEmail(t *testing.T) {
	if err := ValidateCredentials("  a@b.com ", "secret1"); err != nil {
		t.Fatalf("expected valid credentials, got %v", err)
	}
}
