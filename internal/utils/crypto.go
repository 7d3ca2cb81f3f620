package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	cipherKeyLen        = 32 // AES-256
	cipherKDFIterations = 100_000
)

// kdfSalt is fixed: the derived key must be stable across restarts so that
// previously written ciphertext stays readable. Rotating the secret
// invalidates all stored tokens, which is the accepted recovery path.
var kdfSalt = []byte("repurpost-oauth-token-cipher-v1")

// TokenCipher encrypts and decrypts token material with AES-256-GCM.
// The key is derived from the configured encryption secret via PBKDF2.
// Only the credential-store boundary should hold a TokenCipher; other
// components work with ciphertext opaquely.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher creates a cipher from the server-held encryption secret
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("encryption secret must be at least 32 characters long")
	}

	key := pbkdf2.Key([]byte(secret), kdfSalt, cipherKDFIterations, cipherKeyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext and returns base64(nonce + ciphertext + tag)
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It fails if the ciphertext was produced with a
// different key or has been tampered with.
func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("ciphertext too short to contain nonce")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}
