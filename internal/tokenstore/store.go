// Package tokenstore persists the bookshelf edit token under a single key.
package tokenstore

import (
	"context"
	"fmt"

	"github.com/drallgood/bookshelf/internal/config"
	"github.com/drallgood/bookshelf/internal/crypto"
	"github.com/drallgood/bookshelf/internal/logger"
)

// Store keeps one token. Get reports ok=false when nothing is stored.
type Store interface {
	Get(ctx context.Context) (token string, ok bool, err error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Close() error
}

// New opens the backend selected by cfg.Session.Backend
func New(cfg *config.Config, log *logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Get()
	}
	log = log.With(map[string]interface{}{
		"component": "tokenstore",
		"backend":   cfg.Session.Backend,
	})

	key := cfg.Session.Key
	var (
		store Store
		err   error
	)
	switch cfg.Session.Backend {
	case config.BackendFile:
		store = NewFileStore(cfg.SessionPath(), key, log)
	case config.BackendSQLite:
		store, err = NewSQLiteStore(cfg.SessionPath(), key, log)
	case config.BackendBolt:
		store, err = NewBoltStore(cfg.SessionPath(), key, log)
	case config.BackendRedis:
		store, err = NewRedisStore(RedisOptions{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		}, key, log)
	case config.BackendMemory:
		store = NewMemoryStore()
	default:
		return nil, &config.ConfigError{Field: "session.backend", Msg: fmt.Sprintf("unknown backend %q", cfg.Session.Backend)}
	}
	if err != nil {
		return nil, err
	}

	if cfg.Session.Encrypt && cfg.Session.Backend != config.BackendMemory {
		em, err := crypto.NewEncryptionManager(cfg.Session.EncryptionKey, cfg.KeyPath(), log)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		store = NewEncrypted(store, em)
	}

	log.Debug("Token store opened", map[string]interface{}{
		"encrypted": cfg.Session.Encrypt,
	})
	return store, nil
}
