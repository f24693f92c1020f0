package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keyIters   = 210_000
	sealedMin  = saltSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	sealHeader = "pmgr1"
)

var ErrBadPayload = errors.New("sealed payload is malformed or the passphrase is wrong")

// Seal encrypts plaintext with a key derived from the passphrase.
// Output layout: header | salt | nonce | ciphertext.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := aeadFor(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealHeader)+saltSize+len(nonce)+len(plaintext)+chacha20poly1305.Overhead)
	out = append(out, sealHeader...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts a payload produced by Seal.
func Open(sealed []byte, passphrase string) ([]byte, error) {
	if len(sealed) < len(sealHeader)+sealedMin || string(sealed[:len(sealHeader)]) != sealHeader {
		return nil, ErrBadPayload
	}
	sealed = sealed[len(sealHeader):]

	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[saltSize+chacha20poly1305.NonceSizeX:]

	aead, err := aeadFor(passphrase, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrBadPayload
	}
	return plaintext, nil
}

func aeadFor(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, keyIters, chacha20poly1305.KeySize, sha256.New)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return aead, nil
}
