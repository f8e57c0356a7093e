package relay

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// GenerateSymKey produces a fresh 32-byte symmetric key, hex encoded. The
// key rides inside the pairing URI so the wallet can open the channel.
func GenerateSymKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate symmetric key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// TopicFromKey derives a topic identifier from a symmetric key. Both sides
// compute the same topic without exchanging it.
func TopicFromKey(symKeyHex string) (string, error) {
	key, err := hex.DecodeString(symKeyHex)
	if err != nil {
		return "", fmt.Errorf("invalid symmetric key: %w", err)
	}
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:]), nil
}

// DeriveSessionKey stretches the pairing key and the settlement nonce into
// the session key. The wallet performs the same derivation, so the session
// key never crosses the wire.
func DeriveSessionKey(pairingKeyHex string, nonce []byte) (string, error) {
	pairingKey, err := hex.DecodeString(pairingKeyHex)
	if err != nil {
		return "", fmt.Errorf("invalid pairing key: %w", err)
	}

	r := hkdf.New(sha256.New, pairingKey, nonce, []byte("wc-session"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return "", fmt.Errorf("failed to derive session key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

func aeadFor(symKeyHex string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(symKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid symmetric key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}
	return aead, nil
}

// Seal encrypts a payload under the topic key and base64-encodes the
// nonce-prefixed envelope.
func Seal(symKeyHex string, plaintext []byte) (string, error) {
	aead, err := aeadFor(symKeyHex)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a base64 envelope produced by Seal.
func Open(symKeyHex string, envelope string) ([]byte, error) {
	aead, err := aeadFor(symKeyHex)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("invalid envelope encoding: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return nil, fmt.Errorf("envelope shorter than nonce")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open envelope: %w", err)
	}
	return plaintext, nil
}
