package tokenstore

import (
	"context"
	"fmt"

	"github.com/drallgood/bookshelf/internal/crypto"
)

// Encrypted seals tokens before handing them to another store
type Encrypted struct {
	next Store
	em   *crypto.EncryptionManager
}

var _ Store = (*Encrypted)(nil)

// NewEncrypted wraps next
func NewEncrypted(next Store, em *crypto.EncryptionManager) *Encrypted {
	return &Encrypted{next: next, em: em}
}

func (e *Encrypted) Get(ctx context.Context) (string, bool, error) {
	sealed, ok, err := e.next.Get(ctx)
	if err != nil || !ok {
		return "", ok, err
	}
	token, err := e.em.Decrypt(sealed)
	if err != nil {
		return "", false, fmt.Errorf("stored token is unreadable: %w", err)
	}
	return token, true, nil
}

func (e *Encrypted) Set(ctx context.Context, token string) error {
	sealed, err := e.em.Encrypt(token)
	if err != nil {
		return err
	}
	return e.next.Set(ctx, sealed)
}

func (e *Encrypted) Clear(ctx context.Context) error { return e.next.Clear(ctx) }
func (e *Encrypted) Close() error                    { return e.next.Close() }
