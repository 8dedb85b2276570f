package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const nonceSize = 12

var (
	// ErrMissingKey is returned when no AES key is configured.
	ErrMissingKey = errors.New("aes key not set")
	// ErrKeySize is returned for keys that are not 256-bit.
	ErrKeySize = errors.New("aes key must be 32 bytes (256-bit)")
	// ErrMalformedToken is returned for ciphertext too short to hold a nonce.
	ErrMalformedToken = errors.New("malformed ciphertext")
)

// FieldCipher seals text fields with AES-256-GCM. Tokens are URL-safe base64
// of nonce||ciphertext.
type FieldCipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewFieldCipher decodes a base64 (URL-safe or standard alphabet) 32-byte key.
func NewFieldCipher(keyB64 string) (*FieldCipher, error) {
	keyB64 = strings.TrimSpace(keyB64)
	if keyB64 == "" {
		return nil, ErrMissingKey
	}
	key, err := decodeKey(keyB64)
	if err != nil {
		return nil, fmt.Errorf("decode aes key: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: aead, rand: rand.Reader}, nil
}

func decodeKey(s string) ([]byte, error) {
	if key, err := base64.URLEncoding.DecodeString(s); err == nil {
		return key, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *FieldCipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, nonceSize, nonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt.
func (c *FieldCipher) Decrypt(token string) ([]byte, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if len(raw) < nonceSize {
		return nil, ErrMalformedToken
	}
	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("open token: %w", err)
	}
	return plain, nil
}
