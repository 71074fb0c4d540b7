// Package storage provides the durable key/value layer that backs client sessions.
//
// Records are grouped by profile. A profile holds at most one logical session
// (its access token, refresh token and user identity), so two profiles on the
// same machine never observe each other's credentials.
package storage

import "errors"

var (
	// ErrNotFound is returned when a key does not exist within a profile.
	ErrNotFound = errors.New("record not found")
	// ErrProfileNotFound is returned when nothing has ever been stored for a profile.
	ErrProfileNotFound = errors.New("profile not found")
)

// BatchTx provides Put and Delete within an atomic transaction.
// The profile is scoped to the batch, so methods don't require it.
type BatchTx interface {
	Put(key string, envelope *Envelope) error
	Delete(key string) error
}

// Repository defines the interface for durable session record storage.
//
// Delete of a missing key is not an error: clearing an already empty
// session must always succeed.
type Repository interface {
	Put(profile string, key string, envelope *Envelope) error
	Get(profile string, key string) (*Envelope, error)
	Delete(profile string, key string) error
	List(profile string) ([]string, error)
	Batch(profile string, fn func(tx BatchTx) error) error
}
