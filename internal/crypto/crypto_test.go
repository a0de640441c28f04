package crypto

import (
	"encoding/hex"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	// Fixed 32-byte key for deterministic tests.
	return hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestRoundtrip(t *testing.T) {
	c, err := NewCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	original := "8c1f2b4e9a7d3c5f1e0b6a8d4c2f7e9b"
	sealed, err := c.Seal(original)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if sealed == original {
		t.Fatal("sealed token should differ from plaintext")
	}

	opened, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if opened != original {
		t.Errorf("roundtrip failed: got %q, want %q", opened, original)
	}
}

func TestDifferentCiphertexts(t *testing.T) {
	c, err := NewCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	token := "same token"
	enc1, err := c.Seal(token)
	if err != nil {
		t.Fatalf("Seal 1: %v", err)
	}
	enc2, err := c.Seal(token)
	if err != nil {
		t.Fatalf("Seal 2: %v", err)
	}

	if enc1 == enc2 {
		t.Error("two seals of the same token should produce different ciphertexts (random nonce)")
	}

	// Both should open to the same value.
	dec1, _ := c.Open(enc1)
	dec2, _ := c.Open(enc2)
	if dec1 != dec2 {
		t.Error("both ciphertexts should open to the same token")
	}
}

func TestNilCipherPassthrough(t *testing.T) {
	var c *Cipher

	token := "plain-token"
	sealed, err := c.Seal(token)
	if err != nil {
		t.Fatalf("nil Seal: %v", err)
	}
	if sealed != token {
		t.Errorf("nil Seal should return the token unchanged, got %q", sealed)
	}

	opened, err := c.Open(token)
	if err != nil {
		t.Fatalf("nil Open: %v", err)
	}
	if opened != token {
		t.Errorf("nil Open should return the value unchanged, got %q", opened)
	}
}

func TestEmptyKeyReturnsNil(t *testing.T) {
	c, err := NewCipher("")
	if err != nil {
		t.Fatalf("NewCipher with empty key: %v", err)
	}
	if c != nil {
		t.Error("NewCipher with empty key should return nil")
	}
}

func TestInvalidKeyLength(t *testing.T) {
	// 16-byte key (too short for AES-256).
	short := hex.EncodeToString([]byte("0123456789abcdef"))
	_, err := NewCipher(short)
	if err == nil {
		t.Error("expected error for 16-byte key")
	}
	if !strings.Contains(err.Error(), "32 bytes") {
		t.Errorf("error should mention 32 bytes, got: %v", err)
	}

	// Invalid hex.
	_, err = NewCipher("not-hex")
	if err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestOpenInvalidData(t *testing.T) {
	c, err := NewCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	// Not base64.
	_, err = c.Open("!!!not-base64!!!")
	if err == nil {
		t.Error("expected error for invalid base64")
	}

	// Valid base64 but too short.
	_, err = c.Open("YQ==")
	if err == nil {
		t.Error("expected error for too-short ciphertext")
	}

	// Valid base64, correct length, but tampered.
	sealed, _ := c.Seal("hello")
	tampered := []byte(sealed)
	if tampered[len(tampered)/2] == 'A' {
		tampered[len(tampered)/2] = 'B'
	} else {
		tampered[len(tampered)/2] = 'A'
	}
	_, err = c.Open(string(tampered))
	if err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}
