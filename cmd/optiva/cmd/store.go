package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmcleod/optiva/internal/config"
	"github.com/jmcleod/optiva/internal/util"
	"github.com/jmcleod/optiva/session"
	"github.com/jmcleod/optiva/storage"
	bboltstorage "github.com/jmcleod/optiva/storage/bbolt"
	"github.com/jmcleod/optiva/storage/memory"
	"github.com/jmcleod/optiva/storage/postgres"
	redisstorage "github.com/jmcleod/optiva/storage/redis"
	"github.com/jmcleod/optiva/token"
)

func openRepository(ctx context.Context, c *config.Config) (storage.Repository, func(), error) {
	switch c.Store {
	case config.StoreMemory:
		return memory.NewRepository(), func() {}, nil
	case config.StoreRedis:
		repo, err := redisstorage.NewRepositoryFromConfig(ctx, c.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		return repo, func() { repo.Close() }, nil
	case config.StorePostgres:
		repo, err := postgres.NewRepositoryFromDSN(ctx, c.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		return repo, repo.Close, nil
	default:
		if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		repo, err := bboltstorage.NewRepositoryFromFile(filepath.Join(c.DataDir, "session.db"), nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		return repo, func() { repo.Close() }, nil
	}
}

// sealingKey returns the record sealing key when a passphrase or a raw hex
// key is configured, or nil.
func sealingKey(repo storage.Repository) ([]byte, error) {
	var (
		key []byte
		err error
	)
	switch {
	case cfg.Passphrase != "":
		key, err = token.KeyFromPassphrase(repo, cfg.Profile, cfg.Passphrase)
	case cfg.StorageKey != "":
		key, err = util.HexDecodeKey(cfg.StorageKey)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load storage key: %w", err)
	}
	return key, nil
}

// openSession wires the configured storage, token store and session
// manager, and restores any persisted session.
func openSession(ctx context.Context) (*session.Manager, func(), error) {
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	key, err := sealingKey(repo)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}
	var opts []token.Option
	if key != nil {
		opts = append(opts, token.WithKey(key))
	}
	store := token.New(repo, cfg.Profile, opts...)
	util.WipeBytes(key)

	m, err := session.Dial(cfg.APIURL, store,
		session.WithLogger(logger),
		session.WithRefreshTimeout(cfg.RefreshTimeout),
		session.WithCacheTTL(cfg.CacheTTL),
		session.OnExpired(func(error) {
			fmt.Fprintln(os.Stderr, "Session expired. Run `optiva login` to sign in again.")
		}),
	)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}
	if _, err := m.Restore(ctx); err != nil {
		m.Close()
		closeRepo()
		return nil, nil, err
	}
	return m, func() {
		m.Close()
		closeRepo()
	}, nil
}
