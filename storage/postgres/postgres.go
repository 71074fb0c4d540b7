// Package postgres implements storage.Repository backed by PostgreSQL.
//
// The session_records table uses a composite primary key (profile,
// record_key) that mirrors the key space used by the BBolt and in-memory
// backends. Envelope fields are stored as individual columns so that nonce
// and ciphertext use native BYTEA storage.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/optiva/storage"
)

// Store implements storage.Repository backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given pgx connection pool.
func NewRepository(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewRepositoryFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Repository.
func NewRepositoryFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewRepository(pool), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const upsertSQL = `INSERT INTO session_records (profile, record_key, ver, scheme, nonce, ciphertext, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7)
	 ON CONFLICT (profile, record_key)
	 DO UPDATE SET ver = $3, scheme = $4, nonce = $5, ciphertext = $6, updated_at = $7`

const deleteSQL = `DELETE FROM session_records WHERE profile = $1 AND record_key = $2`

func (s *Store) Put(profile, key string, envelope *storage.Envelope) error {
	_, err := s.pool.Exec(context.Background(), upsertSQL,
		profile, key, envelope.Ver, envelope.Scheme, envelope.Nonce, envelope.Ciphertext, envelope.UpdatedAt)
	return err
}

func (s *Store) Get(profile, key string) (*storage.Envelope, error) {
	var env storage.Envelope
	err := s.pool.QueryRow(context.Background(),
		`SELECT ver, scheme, nonce, ciphertext, updated_at
		 FROM session_records WHERE profile = $1 AND record_key = $2`,
		profile, key).Scan(&env.Ver, &env.Scheme, &env.Nonce, &env.Ciphertext, &env.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.notFoundError(context.Background(), profile, key)
	}
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func (s *Store) List(profile string) ([]string, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT record_key FROM session_records WHERE profile = $1 ORDER BY record_key`, profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) Delete(profile, key string) error {
	_, err := s.pool.Exec(context.Background(), deleteSQL, profile, key)
	return err
}

func (s *Store) Batch(profile string, fn func(tx storage.BatchTx) error) error {
	ctx := context.Background()
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer pgTx.Rollback(ctx) //nolint:errcheck

	if err := fn(&pgBatchTx{tx: pgTx, profile: profile}); err != nil {
		return err
	}
	return pgTx.Commit(ctx)
}

type pgBatchTx struct {
	tx      pgx.Tx
	profile string
}

var _ storage.BatchTx = (*pgBatchTx)(nil)

func (btx *pgBatchTx) Put(key string, envelope *storage.Envelope) error {
	_, err := btx.tx.Exec(context.Background(), upsertSQL,
		btx.profile, key, envelope.Ver, envelope.Scheme, envelope.Nonce, envelope.Ciphertext, envelope.UpdatedAt)
	return err
}

func (btx *pgBatchTx) Delete(key string) error {
	_, err := btx.tx.Exec(context.Background(), deleteSQL, btx.profile, key)
	return err
}

// notFoundError distinguishes a missing profile from a missing key within an
// existing profile, preserving the BBolt semantics.
func (s *Store) notFoundError(ctx context.Context, profile, key string) error {
	var exists bool
	_ = s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM session_records WHERE profile = $1 LIMIT 1)`,
		profile).Scan(&exists)
	if !exists {
		return fmt.Errorf("%s: %w", profile, storage.ErrProfileNotFound)
	}
	return fmt.Errorf("%s/%s: %w", profile, key, storage.ErrNotFound)
}
