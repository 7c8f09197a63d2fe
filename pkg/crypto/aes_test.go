package crypto

import (
	"errors"
	"strings"
	"testing"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestBoxRoundTrip(t *testing.T) {
	box, err := NewBox(testKey)
	if err != nil {
		t.Fatalf("NewBox() error = %v", err)
	}

	sealed, err := box.Encrypt("RAMQ ABCD 1234 5678")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if sealed == "RAMQ ABCD 1234 5678" {
		t.Fatal("ciphertext equals plaintext")
	}

	opened, err := box.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if opened != "RAMQ ABCD 1234 5678" {
		t.Errorf("Decrypt() = %q, want original plaintext", opened)
	}
}

func TestBoxNonceVariance(t *testing.T) {
	box, _ := NewBox(testKey)

	a, _ := box.Encrypt("same input")
	b, _ := box.Encrypt("same input")
	if a == b {
		t.Error("two encryptions of the same input produced identical ciphertexts")
	}
}

func TestBoxRejectsWrongKey(t *testing.T) {
	box, _ := NewBox(testKey)
	other, _ := NewBox([]byte("ffffffffffffffffffffffffffffffff"))

	sealed, _ := box.Encrypt("secret")
	if _, err := other.Decrypt(sealed); err == nil {
		t.Error("Decrypt() with wrong key succeeded")
	}
}

func TestBoxRejectsTamperedCiphertext(t *testing.T) {
	box, _ := NewBox(testKey)

	sealed, _ := box.Encrypt("secret")
	tampered := strings.Replace(sealed, sealed[:1], "A", 1)
	if tampered == sealed {
		tampered = "B" + sealed[1:]
	}
	if _, err := box.Decrypt(tampered); err == nil {
		t.Error("Decrypt() of tampered ciphertext succeeded")
	}
}

func TestBoxRejectsShortCiphertext(t *testing.T) {
	box, _ := NewBox(testKey)
	if _, err := box.Decrypt("QUJD"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("Decrypt() error = %v, want ErrCiphertextTooShort", err)
	}
}

func TestNewBoxRejectsShortKey(t *testing.T) {
	if _, err := NewBox([]byte("short")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("NewBox() error = %v, want ErrInvalidKey", err)
	}
}

func TestKeyFromHex(t *testing.T) {
	key, err := KeyFromHex(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("KeyFromHex() error = %v", err)
	}
	if len(key) != 32 {
		t.Errorf("KeyFromHex() len = %d, want 32", len(key))
	}

	if _, err := KeyFromHex("zz"); err == nil {
		t.Error("KeyFromHex() accepted non-hex input")
	}
	if _, err := KeyFromHex("abcd"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("KeyFromHex() short key error = %v, want ErrInvalidKey", err)
	}
}

func TestHashDeterministic(t *testing.T) {
	if Hash("value") != Hash("value") {
		t.Error("Hash() is not deterministic")
	}
	if Hash("value") == Hash("other") {
		t.Error("Hash() collides on different inputs")
	}
	if len(Hash("value")) != 64 {
		t.Errorf("Hash() length = %d, want 64 hex chars", len(Hash("value")))
	}
}
