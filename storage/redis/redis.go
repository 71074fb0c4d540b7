// Package redis implements storage.Repository on top of a Redis server.
//
// Each profile is a single hash (optiva:profile:<name>) whose fields are the
// record keys and whose values are JSON envelopes, so a profile can be
// shared by several client processes on different hosts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jmcleod/optiva/storage"
)

const keyPrefix = "optiva:profile:"

// Config mirrors the subset of redis.Options the CLI exposes.
type Config struct {
	Addr         string        `mapstructure:"addr"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Options converts the config into go-redis options, filling defaults.
func (c Config) Options() *goredis.Options {
	opts := &goredis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:6379"
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return opts
}

// Store implements storage.Repository backed by Redis hashes.
type Store struct {
	client  goredis.UniversalClient
	timeout time.Duration
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository using an existing client.
func NewRepository(client goredis.UniversalClient) *Store {
	return &Store{client: client, timeout: 5 * time.Second}
}

// NewRepositoryFromConfig dials Redis and verifies the connection with PING.
func NewRepositoryFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	client := goredis.NewClient(cfg.Options())
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRepository(client), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func hashKey(profile string) string {
	return keyPrefix + profile
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) Put(profile, key string, envelope *storage.Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.HSet(ctx, hashKey(profile), key, data).Err()
}

func (s *Store) Get(profile, key string) (*storage.Envelope, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	data, err := s.client.HGet(ctx, hashKey(profile), key).Bytes()
	if errors.Is(err, goredis.Nil) {
		n, existsErr := s.client.Exists(ctx, hashKey(profile)).Result()
		if existsErr != nil {
			return nil, existsErr
		}
		if n == 0 {
			return nil, fmt.Errorf("%s: %w", profile, storage.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("%s/%s: %w", profile, key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var env storage.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding %s/%s: %w", profile, key, err)
	}
	return &env, nil
}

func (s *Store) Delete(profile, key string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.HDel(ctx, hashKey(profile), key).Err()
}

func (s *Store) List(profile string) ([]string, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	keys, err := s.client.HKeys(ctx, hashKey(profile)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

type redisBatchTx struct {
	pipe    goredis.Pipeliner
	ctx     context.Context
	profile string
}

func (tx *redisBatchTx) Put(key string, envelope *storage.Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	tx.pipe.HSet(tx.ctx, hashKey(tx.profile), key, data)
	return nil
}

func (tx *redisBatchTx) Delete(key string) error {
	tx.pipe.HDel(tx.ctx, hashKey(tx.profile), key)
	return nil
}

// Batch queues the writes made by fn into a MULTI/EXEC pipeline. Nothing is
// sent to the server when fn returns an error.
func (s *Store) Batch(profile string, fn func(tx storage.BatchTx) error) error {
	ctx, cancel := s.ctx()
	defer cancel()
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		return fn(&redisBatchTx{pipe: pipe, ctx: ctx, profile: profile})
	})
	return err
}
