// Package uuid wraps google/uuid so callers only ever see string identifiers.
package uuid

import "github.com/google/uuid"

// New returns a random (v4) UUID in canonical string form.
func New() string {
	return uuid.NewString()
}
