package tokenstore

import (
	"context"

	"github.com/drallgood/bookshelf/internal/database"
	"github.com/drallgood/bookshelf/internal/logger"
)

// SQLiteStore keeps the token in the settings table of a local SQLite file
type SQLiteStore struct {
	db  *database.Database
	key string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path
func NewSQLiteStore(path, key string, log *logger.Logger) (*SQLiteStore, error) {
	db, err := database.NewDatabase(path, log)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, key: key}, nil
}

func (s *SQLiteStore) Get(ctx context.Context) (string, bool, error) {
	return s.db.GetSetting(ctx, s.key)
}

func (s *SQLiteStore) Set(ctx context.Context, token string) error {
	return s.db.PutSetting(ctx, s.key, token)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.db.DeleteSetting(ctx, s.key)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
