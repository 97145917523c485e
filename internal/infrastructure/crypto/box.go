// Package crypto seals tenant connection credentials at rest.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/catalogsync/backend/internal/domain/tenant"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrInvalidKey is returned when the configured key is not a hex-encoded
	// 32-byte value.
	ErrInvalidKey = errors.New("crypto: credential key must be 32 bytes, hex-encoded")

	// ErrSealedTooShort is returned when a sealed blob is shorter than the
	// nonce prefix.
	ErrSealedTooShort = errors.New("crypto: sealed credentials too short")
)

// ---------------------------------------------------------------------------
// Box
// ---------------------------------------------------------------------------

// Box seals and opens credential blobs with XChaCha20-Poly1305. The nonce is
// prepended to the ciphertext, so sealed values are self-contained.
type Box struct {
	key []byte
}

var _ tenant.CredentialBox = (*Box)(nil)

// NewBox creates a credential box from a hex-encoded 32-byte key.
func NewBox(hexKey string) (*Box, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return &Box{key: key}, nil
}

// GenerateKey returns a fresh hex-encoded key suitable for NewBox. Used by
// operators to bootstrap a deployment.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("crypto: generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Seal encrypts plaintext and returns nonce||ciphertext.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: seal: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: seal nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal.
func (b *Box) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: open: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrSealedTooShort
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: open: %w", err)
	}
	return plaintext, nil
}
