package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestAES(t *testing.T) {
	key, _ := NewAESKey()
	plainText := []byte("access-token-value")
	aad := []byte("optiva:default:accessToken")

	t.Run("EncryptDecryptWithAAD", func(t *testing.T) {
		cipherText, err := EncryptAESWithAAD(plainText, key, aad)
		if err != nil {
			t.Fatalf("EncryptAESWithAAD failed: %v", err)
		}

		decrypted, err := DecryptAESWithAAD(cipherText, key, aad)
		if err != nil {
			t.Fatalf("DecryptAESWithAAD failed: %v", err)
		}

		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("TamperAAD", func(t *testing.T) {
		cipherText, _ := EncryptAESWithAAD(plainText, key, aad)
		_, err := DecryptAESWithAAD(cipherText, key, []byte("optiva:default:refreshToken"))
		if err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("TamperCipherText", func(t *testing.T) {
		cipherText, _ := EncryptAESWithAAD(plainText, key, aad)
		cipherText[len(cipherText)-1] ^= 0xFF
		_, err := DecryptAESWithAAD(cipherText, key, aad)
		if err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("ShortCipherText", func(t *testing.T) {
		_, err := DecryptAESWithAAD([]byte("short"), key, aad)
		if err == nil {
			t.Error("expected error with truncated ciphertext, got nil")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		_, err := EncryptAESWithAAD(plainText, []byte("too short"), aad)
		if err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})
}

func TestArgon2id(t *testing.T) {
	params := DefaultArgon2idParams()
	params.MemoryKiB = 8 * 1024
	salt := []byte("random salt")

	key, err := DeriveArgon2idKey("correct horse battery staple", salt, params)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("expected key length 32, got %d", len(key))
	}

	again, _ := DeriveArgon2idKey("correct horse battery staple", salt, params)
	if !bytes.Equal(key, again) {
		t.Error("expected deterministic derivation")
	}

	other, _ := DeriveArgon2idKey("wrong passphrase", salt, params)
	if bytes.Equal(key, other) {
		t.Error("expected different key for a different passphrase")
	}

	if _, err := DeriveArgon2idKey("x", nil, params); err == nil {
		t.Error("expected error for empty salt")
	}
}

func TestArgon2idNormalizesPassphrase(t *testing.T) {
	params := DefaultArgon2idParams()
	params.MemoryKiB = 8 * 1024
	salt := []byte("salt")

	composed, _ := DeriveArgon2idKey("caf\u00e9", salt, params)
	decomposed, _ := DeriveArgon2idKey("cafe\u0301", salt, params)
	if !bytes.Equal(composed, decomposed) {
		t.Error("expected NFKD-equivalent passphrases to derive the same key")
	}
}

func TestHKDF(t *testing.T) {
	seed := []byte("seed")

	key1, err := HKDF(seed, nil, []byte("optiva:tokens:default"))
	if err != nil {
		t.Fatalf("HKDF failed: %v", err)
	}
	if len(key1) != 32 {
		t.Errorf("expected key length 32, got %d", len(key1))
	}

	key2, _ := HKDF(seed, nil, []byte("optiva:tokens:default"))
	if !bytes.Equal(key1, key2) {
		t.Error("HKDF should be deterministic")
	}

	key3, _ := HKDF(seed, nil, []byte("optiva:tokens:work"))
	if bytes.Equal(key1, key3) {
		t.Error("HKDF should produce different output with different info")
	}
}

func TestHexDecodeKey(t *testing.T) {
	key, _ := NewAESKey()
	got, err := HexDecodeKey(HexEncode(key))
	if err != nil {
		t.Fatalf("HexDecodeKey failed: %v", err)
	}
	if !bytes.Equal(key, got) {
		t.Error("round trip mismatch")
	}

	if _, err := HexDecodeKey("abcd"); err == nil {
		t.Error("expected error for short key")
	}
	if _, err := HexDecodeKey("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestRandomChars(t *testing.T) {
	s, err := RandomChars(40)
	if err != nil {
		t.Fatalf("RandomChars failed: %v", err)
	}
	if len(s) != 40 {
		t.Fatalf("expected 40 chars, got %d", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(string(allowedRandomChars), r) {
			t.Fatalf("unexpected rune %q", r)
		}
	}
}

func TestWipeBytes(t *testing.T) {
	b := []byte("secret")
	cp := CopyBytes(b)
	WipeBytes(b)
	for _, c := range b {
		if c != 0 {
			t.Fatal("expected wiped bytes")
		}
	}
	if string(cp) != "secret" {
		t.Fatal("copy should be independent of the source")
	}
	if CopyBytes(nil) != nil {
		t.Fatal("copy of nil should stay nil")
	}
}
