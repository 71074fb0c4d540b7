package util

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD so that visually identical passphrases derive the same key.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// HexDecodeKey decodes a hex-encoded AES-256 key.
func HexDecodeKey(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding hex key: %w", err)
	}
	if len(b) != AESKeySize {
		WipeBytes(b)
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(b), AESKeySize)
	}
	return b, nil
}
