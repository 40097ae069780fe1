package persistence

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Secret cipher errors
var (
	ErrInvalidSecretKey = errors.New("persistence: secret key must be 32 bytes")
	ErrSecretCorrupted  = errors.New("persistence: stored secret cannot be decrypted")
)

// SecretCipher encrypts provider secrets at rest with XChaCha20-Poly1305.
// Each sealed value is the random nonce followed by the ciphertext. The
// associated data binds a value to its row so secrets cannot be swapped
// between tenants.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher creates a cipher from a 32-byte key
func NewSecretCipher(key []byte) (*SecretCipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidSecretKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("persistence: init cipher: %w", err)
	}
	return &SecretCipher{aead: aead}, nil
}

// NewSecretCipherFromHex creates a cipher from a hex-encoded key as found in
// the integration.secret_key setting
func NewSecretCipherFromHex(hexKey string) (*SecretCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}
	return NewSecretCipher(key)
}

// Seal encrypts plaintext. An empty plaintext seals to nil so unset secrets
// stay NULL.
func (c *SecretCipher) Seal(plaintext, associated string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("persistence: read nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, []byte(plaintext), []byte(associated)), nil
}

// Open decrypts a value produced by Seal with the same associated data
func (c *SecretCipher) Open(sealed []byte, associated string) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	if len(sealed) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrSecretCorrupted
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, []byte(associated))
	if err != nil {
		return "", ErrSecretCorrupted
	}
	return string(plaintext), nil
}
