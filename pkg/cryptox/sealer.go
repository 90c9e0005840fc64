// Package cryptox seals the handful of values the client persists locally
// (bearer token, serialized identity) so they are not readable at rest.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"
)

const keyFileSize = 32

// hkdfInfo binds derived keys to this usage so the same key file can never
// be reused for another purpose without rotating ciphertexts.
const hkdfInfo = "gatepass/state-sealer/v1"

// Sealer provides authenticated encryption for persisted client state.
// Output format per value: [nonce][ciphertext+tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer loads key material from the given file, creating a random key
// file (0600) on first use, and derives an AES-256-GCM key via HKDF-SHA256.
func NewSealer(keyFile string) (*Sealer, error) {
	material, err := os.ReadFile(keyFile)
	if os.IsNotExist(err) {
		material = make([]byte, keyFileSize)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("generate key material: %w", err)
		}
		if err := os.WriteFile(keyFile, material, 0o600); err != nil {
			return nil, fmt.Errorf("write key file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, material, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts and authenticates plain with a fresh random nonce.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

// Open decrypts a value produced by Seal, verifying its authentication tag.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns {
		return nil, fmt.Errorf("sealed value too short")
	}
	plain, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return plain, nil
}
