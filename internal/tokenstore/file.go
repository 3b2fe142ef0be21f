package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/drallgood/bookshelf/internal/logger"
)

// FileStore keeps entries in a small JSON document. Other keys in the
// document are preserved.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  string
	log  *logger.Logger
}

var _ Store = (*FileStore)(nil)

type fileDocument struct {
	Entries   map[string]string `json:"entries"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewFileStore creates a store backed by the file at path. The file is
// created on first Set.
func NewFileStore(path, key string, log *logger.Logger) *FileStore {
	if log == nil {
		log = logger.Nop()
	}
	return &FileStore{path: path, key: key, log: log}
}

func (f *FileStore) Get(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", false, err
	}
	token, ok := doc.Entries[f.key]
	return token, ok, nil
}

func (f *FileStore) Set(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc.Entries[f.key] = token
	return f.write(doc)
}

func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := doc.Entries[f.key]; !ok {
		return nil
	}
	delete(doc.Entries, f.key)
	if len(doc.Entries) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove token file %q: %w", f.path, err)
		}
		return nil
	}
	return f.write(doc)
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) read() (*fileDocument, error) {
	doc := &fileDocument{Entries: map[string]string{}}
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file %q: %w", f.path, err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse token file %q: %w", f.path, err)
	}
	if doc.Entries == nil {
		doc.Entries = map[string]string{}
	}
	return doc, nil
}

// write replaces the file atomically: temp file in the same directory, fsync, rename
func (f *FileStore) write(doc *fileDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory %q: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %q: %w", dir, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		if _, err := os.Stat(tmpPath); err == nil {
			os.Remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync token file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("failed to rename temp file to %q: %w", f.path, err)
	}

	f.log.Debug("Token file written", map[string]interface{}{
		"path":    f.path,
		"entries": len(doc.Entries),
	})
	return nil
}
