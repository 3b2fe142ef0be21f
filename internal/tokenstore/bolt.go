package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"

	"github.com/drallgood/bookshelf/internal/logger"
)

// BoltBucket is the bucket holding session entries
const BoltBucket = "session"

// BoltStore keeps the token in a boltdb file
type BoltStore struct {
	client *bolt.DB
	key    []byte
	log    *logger.Logger
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens the database at path and makes sure the bucket exists
func NewBoltStore(path, key string, log *logger.Logger) (*BoltStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create bolt directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(BoltBucket)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %w", BoltBucket, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %w", err)
	}
	return &BoltStore{client: db, key: []byte(key), log: log}, nil
}

func (b *BoltStore) Get(context.Context) (string, bool, error) {
	tx, err := b.client.Begin(false)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	v := tx.Bucket([]byte(BoltBucket)).Get(b.key)
	if v == nil {
		return "", false, nil
	}
	// v is only valid for the life of the transaction
	return string(v), true, nil
}

func (b *BoltStore) Set(_ context.Context, token string) error {
	return b.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BoltBucket)).Put(b.key, []byte(token))
	})
}

func (b *BoltStore) Clear(context.Context) error {
	return b.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BoltBucket)).Delete(b.key)
	})
}

func (b *BoltStore) Close() error {
	return b.client.Close()
}
