package internal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const cipherKeyBytes = 32

// ErrCipherKeySize is returned when the process encryption key is not 32 bytes.
var ErrCipherKeySize = errors.New("encryption key must be 32 bytes")

// ErrCiphertextInvalid is returned for ciphertexts that are truncated or fail
// authentication.
var ErrCiphertextInvalid = errors.New("invalid ciphertext")

// Cipher encrypts TOTP secrets and recovery codes at rest with AES-256-GCM
// using a process-wide key. The key is supplied once at construction and is
// never persisted by this module.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != cipherKeyBytes {
		return nil, ErrCipherKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext), the form
// persisted in the user record.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encoded string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrCiphertextInvalid
	}
	if len(sealed) < c.aead.NonceSize() {
		return nil, ErrCiphertextInvalid
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCiphertextInvalid
	}
	return plaintext, nil
}

// EncryptString is Encrypt for string plaintexts.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	return c.Encrypt([]byte(plaintext))
}

// DecryptString is Decrypt returning a string.
func (c *Cipher) DecryptString(encoded string) (string, error) {
	raw, err := c.Decrypt(encoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
