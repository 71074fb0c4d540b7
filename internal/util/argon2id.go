package util

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2idParams are the cost parameters used to stretch a store passphrase.
type Argon2idParams struct {
	Time        uint32 `json:"time"`
	MemoryKiB   uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
	KeyLen      uint32 `json:"key_len"`
}

func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
	}
}

// DeriveArgon2idKey normalizes the passphrase and stretches it into a 32-byte key.
func DeriveArgon2idKey(passphrase string, salt []byte, params Argon2idParams) ([]byte, error) {
	if params.KeyLen != 32 {
		return nil, fmt.Errorf("argon2id key length must be 32 bytes")
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("argon2id salt must not be empty")
	}
	return argon2.IDKey([]byte(Normalize(passphrase)), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen), nil
}
