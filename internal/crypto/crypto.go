// internal/crypto/crypto.go
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. The salt is static so the same passphrase
// always derives the same key across restarts.
const (
	kdfIterations = 100_000
	kdfSalt       = "portfolio_github_salt"
)

// ErrNoKey is returned when no encryption key material is configured.
var ErrNoKey = errors.New("crypto: encryption key not configured")

// Manager encrypts and decrypts sensitive strings with a key derived from a
// configured passphrase. Construct it explicitly and inject it; a nil
// *Manager is a valid "encryption disabled" state for callers that allow
// degraded operation.
type Manager struct {
	key []byte
}

// NewManager derives the AEAD key from the given passphrase.
func NewManager(passphrase string) (*Manager, error) {
	if passphrase == "" {
		return nil, ErrNoKey
	}
	key := pbkdf2.Key([]byte(passphrase), []byte(kdfSalt), kdfIterations, chacha20poly1305.KeySize, sha256.New)
	return &Manager{key: key}, nil
}

// Encrypt seals plaintext and returns a urlsafe base64 string that embeds
// the nonce. Empty input encrypts to the empty string.
func (m *Manager) Encrypt(plaintext string) (string, error) {
	if m == nil {
		return "", ErrNoKey
	}
	if plaintext == "" {
		return "", nil
	}

	aead, err := chacha20poly1305.NewX(m.key)
	if err != nil {
		return "", fmt.Errorf("crypto: init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (m *Manager) Decrypt(ciphertext string) (string, error) {
	if m == nil {
		return "", ErrNoKey
	}
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decode ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.NewX(m.key)
	if err != nil {
		return "", fmt.Errorf("crypto: init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("crypto: ciphertext too short")
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: open ciphertext: %w", err)
	}
	return string(plaintext), nil
}
