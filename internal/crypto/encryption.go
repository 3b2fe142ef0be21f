// Package crypto seals the stored edit token with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/drallgood/bookshelf/internal/logger"
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidKeySize    = errors.New("invalid key size")
)

// KeySize is the AES-256 key length in bytes
const KeySize = 32

// EncryptionManager handles encryption and decryption of sensitive data
type EncryptionManager struct {
	aead   cipher.AEAD
	logger *logger.Logger
}

// NewEncryptionManagerWithKey creates an encryption manager with a specific key
func NewEncryptionManagerWithKey(key []byte, log *logger.Logger) (*EncryptionManager, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if log == nil {
		log = logger.Nop()
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &EncryptionManager{aead: gcm, logger: log}, nil
}

// NewEncryptionManager resolves a key and builds a manager. A configured key
// is either base64 of 32 bytes or a passphrase; without one, a random key is
// kept in keyPath, created on first use.
func NewEncryptionManager(configured, keyPath string, log *logger.Logger) (*EncryptionManager, error) {
	key, err := resolveKey(configured, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}
	return NewEncryptionManagerWithKey(key, log)
}

// Encrypt encrypts plaintext and returns base64 of nonce||ciphertext
func (em *EncryptionManager) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, em.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		em.logger.Error("Failed to generate nonce", map[string]interface{}{
			"error": err.Error(),
		})
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := em.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (em *EncryptionManager) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := em.aead.NonceSize()
	if len(data) < nonceSize {
		em.logger.Error("Ciphertext too short", map[string]interface{}{
			"data_length": len(data),
			"nonce_size":  nonceSize,
		})
		return "", ErrInvalidCiphertext
	}

	plaintext, err := em.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		em.logger.Error("Failed to decrypt", map[string]interface{}{
			"error": err.Error(),
		})
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return string(plaintext), nil
}

// DeriveKeyFromPassword derives an encryption key from a passphrase using SHA-256
func DeriveKeyFromPassword(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}

func resolveKey(configured, keyPath string) ([]byte, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		if key, err := base64.StdEncoding.DecodeString(configured); err == nil && len(key) == KeySize {
			return key, nil
		}
		return DeriveKeyFromPassword(configured), nil
	}

	if keyPath == "" {
		return nil, errors.New("no encryption key configured and no key file path")
	}

	if data, err := os.ReadFile(keyPath); err == nil {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode encryption key from file: %w", err)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read encryption key: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyPath, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save encryption key: %w", err)
	}
	return key, nil
}
