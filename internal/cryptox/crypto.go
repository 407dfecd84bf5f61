// Package cryptox wraps the primitives used by the secure channel and by
// account storage: an ephemeral RSA keypair for the handshake, an AES-GCM
// session cipher for application traffic, and bcrypt password hashes.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// RSABits is the modulus size of the handshake keypair.
	RSABits = 2048
	// SessionKeySize selects AES-256.
	SessionKeySize = 32
	// BcryptCost is the work factor for stored password hashes.
	BcryptCost = 12
)

var (
	ErrBadPublicKey  = errors.New("invalid public key")
	ErrShortMessage  = errors.New("ciphertext too short")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// GenerateKeyPair creates the endpoint's ephemeral handshake keypair.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, RSABits)
}

// EncodePublicKey returns the PEM (PKIX) form of pub.
func EncodePublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// DecodePublicKey parses a PEM public key produced by EncodePublicKey.
func DecodePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrBadPublicKey
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPublicKey, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, ErrBadPublicKey
	}
	return pub, nil
}

// WrapKey encrypts a session key for the holder of pub (RSA-OAEP, SHA-256).
func WrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
}

// UnwrapKey reverses WrapKey.
func UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
}

// NewSessionKey returns a fresh random AES-256 key.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, SessionKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// SessionCipher seals and opens application messages with one AES-GCM key.
// It is safe for concurrent use.
type SessionCipher struct {
	aead cipher.AEAD
}

// NewSessionCipher builds a SessionCipher. The key must be 16, 24 or 32 bytes.
func NewSessionCipher(key []byte) (*SessionCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SessionCipher{aead: aead}, nil
}

// Seal encrypts plaintext and returns nonce || ciphertext. A new random nonce
// is drawn for every call.
func (c *SessionCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a message produced by Seal.
func (c *SessionCipher) Open(msg []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(msg) < ns {
		return nil, ErrShortMessage
	}
	return c.aead.Open(nil, msg[:ns], msg[ns:], nil)
}

// HashPassword returns the bcrypt hash stored for an account.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
