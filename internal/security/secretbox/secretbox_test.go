package secretbox

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func testBox(t *testing.T) *Box {
	t.Helper()
	b, err := New(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestSealOpenRoundTrip(t *testing.T) {
	b := testBox(t)

	for _, plain := range []string{"", "x", "un access token bastante largo con espacios y ñ"} {
		sealed, err := b.Seal(plain)
		if err != nil {
			t.Fatalf("Seal(%q): %v", plain, err)
		}
		if strings.Contains(sealed, plain) && plain != "" {
			t.Fatalf("sealed output contains plaintext")
		}
		got, err := b.Open(sealed)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if got != plain {
			t.Fatalf("round trip: got %q, want %q", got, plain)
		}
	}
}

func TestSeal_NonDeterministic(t *testing.T) {
	b := testBox(t)

	a, _ := b.Seal("same input")
	c, _ := b.Seal("same input")
	if a == c {
		t.Fatalf("two seals of the same input must differ (random nonce)")
	}
}

func TestOpen_RejectsTampering(t *testing.T) {
	b := testBox(t)

	sealed, _ := b.Seal("secret")
	tampered := sealed[:len(sealed)-2] + "A="
	if _, err := b.Open(tampered); err == nil {
		t.Fatalf("tampered ciphertext must not open")
	}

	if _, err := b.Open("no-separator"); !errors.Is(err, ErrCiphertext) {
		t.Fatalf("want ErrCiphertext, got %v", err)
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	b1 := testBox(t)
	b2, err := New(base64.StdEncoding.EncodeToString([]byte("fedcba9876543210fedcba9876543210")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, _ := b1.Seal("secret")
	if _, err := b2.Open(sealed); err == nil {
		t.Fatalf("wrong key must not open")
	}
}

func TestNew_KeyValidation(t *testing.T) {
	if _, err := New("not base64!!!"); err == nil {
		t.Fatalf("invalid base64 must fail")
	}
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := New(short); !errors.Is(err, ErrKeyLength) {
		t.Fatalf("want ErrKeyLength, got %v", err)
	}
}
