package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100_000
)

// ErrDecryption is returned when stored credentials cannot be unwrapped.
var ErrDecryption = errors.New("credential decryption failed")

// Cipher seals and opens the encrypted credential payload.
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(payload string) ([]byte, error)
}

// PassphraseCipher derives an AES-256-GCM key from a passphrase with PBKDF2.
// Payload layout: base64(salt | nonce | ciphertext).
type PassphraseCipher struct {
	passphrase string
}

func NewPassphraseCipher(passphrase string) *PassphraseCipher {
	return &PassphraseCipher{passphrase: passphrase}
}

func (c *PassphraseCipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(c.passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (c *PassphraseCipher) Encrypt(plaintext []byte) (string, error) {
	if c.passphrase == "" {
		return "", fmt.Errorf("encryption passphrase is empty")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *PassphraseCipher) Decrypt(payload string) ([]byte, error) {
	if c.passphrase == "" {
		return nil, fmt.Errorf("%w: no passphrase configured", ErrDecryption)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64: %v", ErrDecryption, err)
	}
	if len(raw) < saltSize {
		return nil, fmt.Errorf("%w: payload too short", ErrDecryption)
	}

	gcm, err := c.aead(raw[:saltSize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	rest := raw[saltSize:]
	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return nil, fmt.Errorf("%w: payload too short", ErrDecryption)
	}

	plaintext, err := gcm.Open(nil, rest[:gcm.NonceSize()], rest[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong passphrase or corrupted payload", ErrDecryption)
	}
	return plaintext, nil
}
