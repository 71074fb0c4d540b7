// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jmcleod/optiva/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing and for sessions that must not outlive the process.
type Repository struct {
	mu   sync.RWMutex
	data map[string]map[string]*storage.Envelope
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]map[string]*storage.Envelope)}
}

func (r *Repository) Put(profile, key string, envelope *storage.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(profile, key, envelope)
	return nil
}

func (r *Repository) putLocked(profile, key string, envelope *storage.Envelope) {
	if _, ok := r.data[profile]; !ok {
		r.data[profile] = make(map[string]*storage.Envelope)
	}
	r.data[profile][key] = envelope.Clone()
}

func (r *Repository) Get(profile, key string) (*storage.Envelope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records, ok := r.data[profile]
	if !ok {
		return nil, fmt.Errorf("%s: %w", profile, storage.ErrProfileNotFound)
	}
	env, ok := records[key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", profile, key, storage.ErrNotFound)
	}
	return env.Clone(), nil
}

func (r *Repository) List(profile string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []string
	for k := range r.data[profile] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Repository) Delete(profile, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteLocked(profile, key)
	return nil
}

func (r *Repository) deleteLocked(profile, key string) {
	if records, ok := r.data[profile]; ok {
		delete(records, key)
	}
}

// Batch executes fn within a batch transaction. On error, all writes are rolled back.
func (r *Repository) Batch(profile string, fn func(tx storage.BatchTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshotProfile(profile)

	tx := &memoryBatchTx{repo: r, profile: profile}
	if err := fn(tx); err != nil {
		r.restoreProfile(profile, snapshot)
		return err
	}
	return nil
}

func (r *Repository) snapshotProfile(profile string) map[string]*storage.Envelope {
	original, ok := r.data[profile]
	if !ok {
		return nil
	}
	cp := make(map[string]*storage.Envelope, len(original))
	for k, v := range original {
		cp[k] = v.Clone()
	}
	return cp
}

func (r *Repository) restoreProfile(profile string, snapshot map[string]*storage.Envelope) {
	if snapshot == nil {
		delete(r.data, profile)
	} else {
		r.data[profile] = snapshot
	}
}

type memoryBatchTx struct {
	repo    *Repository
	profile string
}

func (tx *memoryBatchTx) Put(key string, envelope *storage.Envelope) error {
	tx.repo.putLocked(tx.profile, key, envelope)
	return nil
}

func (tx *memoryBatchTx) Delete(key string) error {
	tx.repo.deleteLocked(tx.profile, key)
	return nil
}
