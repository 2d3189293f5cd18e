package crypto

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "secret1" {
		t.Fatal("hash must not equal the password")
	}
	if err := CheckPassword(hash, "secret1"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := CheckPassword(hash, "secret2"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestNewTokenID(t *testing.T) {
	a, err := uuid.Parse(NewTokenID())
	if err != nil {
		t.Fatal(err)
	}
	if a.Version() != 7 {
		t.Fatalf("expected version 7, got %d", a.Version())
	}
	if NewTokenID() == a.String() {
		t.Fatal("token ids must be unique")
	}
}
