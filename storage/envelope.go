package storage

import (
	"fmt"
	"time"

	"github.com/jmcleod/optiva/internal/util"
)

const (
	SchemeRaw       = "raw"
	SchemeAES256GCM = "aes256gcm"
)

// Envelope is a stored record. Raw envelopes carry the plaintext in
// Ciphertext; sealed envelopes carry AES-256-GCM output.
type Envelope struct {
	Ver        int       `json:"ver"`
	Scheme     string    `json:"scheme"`
	Nonce      []byte    `json:"nonce,omitempty"`
	Ciphertext []byte    `json:"ciphertext"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the envelope.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	return &Envelope{
		Ver:        e.Ver,
		Scheme:     e.Scheme,
		Nonce:      util.CopyBytes(e.Nonce),
		Ciphertext: util.CopyBytes(e.Ciphertext),
		UpdatedAt:  e.UpdatedAt,
	}
}

// RecordAAD binds a sealed record to its profile and key so that a value
// cannot be swapped between entries.
func RecordAAD(profile, key string) []byte {
	return []byte("optiva:" + profile + ":" + key)
}

// RawRecord wraps plaintext in an unsealed Envelope.
func RawRecord(plaintext []byte) *Envelope {
	return &Envelope{
		Ver:        1,
		Scheme:     SchemeRaw,
		Ciphertext: util.CopyBytes(plaintext),
		UpdatedAt:  time.Now().UTC(),
	}
}

// SealRecord encrypts plaintext into an Envelope using the given key and AAD.
func SealRecord(recordKey, plaintext, aad []byte) (*Envelope, error) {
	cipher, err := util.EncryptAESWithAAD(plaintext, recordKey, aad)
	if err != nil {
		return nil, err
	}

	// util.EncryptAESWithAAD returns nonce || ciphertext.
	return &Envelope{
		Ver:        1,
		Scheme:     SchemeAES256GCM,
		Nonce:      cipher[:12],
		Ciphertext: cipher[12:],
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

// OpenRecord returns the plaintext of an Envelope. A nil recordKey only
// accepts raw envelopes; a sealed envelope always requires the key.
func OpenRecord(recordKey []byte, envelope *Envelope, aad []byte) ([]byte, error) {
	if envelope.Ver != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", envelope.Ver)
	}
	switch envelope.Scheme {
	case SchemeRaw:
		return util.CopyBytes(envelope.Ciphertext), nil
	case SchemeAES256GCM:
		if recordKey == nil {
			return nil, fmt.Errorf("sealed envelope requires a key")
		}
	default:
		return nil, fmt.Errorf("unsupported envelope scheme: %s", envelope.Scheme)
	}

	// Reconstruct nonce || ciphertext without mutating envelope fields.
	fullCipher := make([]byte, len(envelope.Nonce)+len(envelope.Ciphertext))
	copy(fullCipher, envelope.Nonce)
	copy(fullCipher[len(envelope.Nonce):], envelope.Ciphertext)

	return util.DecryptAESWithAAD(fullCipher, recordKey, aad)
}
