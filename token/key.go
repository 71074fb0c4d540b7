package token

import (
	"errors"
	"fmt"

	"github.com/jmcleod/optiva/internal/util"
	"github.com/jmcleod/optiva/storage"
)

const (
	keySalt  = "__salt"
	saltSize = 16
)

// KeyFromPassphrase derives the record sealing key for a profile. The
// argon2id salt is created on first use and stored unsealed next to the
// profile's records; the per-profile key is expanded from the stretched
// passphrase with HKDF.
func KeyFromPassphrase(repo storage.Repository, profile, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}
	salt, err := loadOrCreateSalt(repo, profile)
	if err != nil {
		return nil, err
	}
	master, err := util.DeriveArgon2idKey(passphrase, salt, util.DefaultArgon2idParams())
	if err != nil {
		return nil, err
	}
	defer util.WipeBytes(master)
	return util.HKDF(master, salt, []byte("optiva:tokens:"+profile))
}

func loadOrCreateSalt(repo storage.Repository, profile string) ([]byte, error) {
	env, err := repo.Get(profile, keySalt)
	if err == nil {
		salt, err := storage.OpenRecord(nil, env, nil)
		if err != nil {
			return nil, fmt.Errorf("reading key salt: %w", err)
		}
		if len(salt) != saltSize {
			return nil, fmt.Errorf("key salt has %d bytes, want %d", len(salt), saltSize)
		}
		return salt, nil
	}
	if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrProfileNotFound) {
		return nil, err
	}

	salt, err := util.RandomBytes(saltSize)
	if err != nil {
		return nil, err
	}
	if err := repo.Put(profile, keySalt, storage.RawRecord(salt)); err != nil {
		return nil, fmt.Errorf("persisting key salt: %w", err)
	}
	return salt, nil
}
