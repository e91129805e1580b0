package diag

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	saltSize  = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var sealMagic = []byte("GPGSEAL1")

// ErrUnsealFailed is returned for a wrong passphrase or corrupted data.
var ErrUnsealFailed = errors.New("unseal failed (wrong passphrase or corrupted data)")

func deriveKey(passphrase string, salt []byte) *[keySize]byte {
	var key [keySize]byte
	copy(key[:], argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keySize))
	return &key
}

// Seal encrypts data with NaCl secretbox under an argon2id key derived from
// passphrase. Layout: magic | salt | nonce | ciphertext.
func Seal(data []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealMagic)+saltSize+nonceSize+len(data)+secretbox.Overhead)
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, data, &nonce, deriveKey(passphrase, salt)), nil
}

// Open reverses Seal.
func Open(sealed []byte, passphrase string) ([]byte, error) {
	header := len(sealMagic) + saltSize + nonceSize
	if len(sealed) < header || !bytes.Equal(sealed[:len(sealMagic)], sealMagic) {
		return nil, errors.New("not a sealed diagnostic package")
	}

	salt := sealed[len(sealMagic) : len(sealMagic)+saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[len(sealMagic)+saltSize:header])

	plain, ok := secretbox.Open(nil, sealed[header:], &nonce, deriveKey(passphrase, salt))
	if !ok {
		return nil, ErrUnsealFailed
	}
	return plain, nil
}
