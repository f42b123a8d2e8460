// Package secretbox cifra secretos cortos con AES-256-GCM.
//
// El gateway lo usa para sellar los tokens del identity provider dentro del
// cookie de sesión: el cookie viaja firmado (JWT) pero los tokens además van
// cifrados, así nunca quedan legibles en el cliente ni en logs.
//
// Formato de salida: base64(nonce)|base64(ciphertext).
package secretbox

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

const (
	nonceSizeGCM      = 12  // AES-GCM nonce recomendado (96 bits)
	requiredKeyLength = 32  // 32 bytes => AES-256
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

var (
	ErrKeyLength  = errors.New("secretbox: key must decode to 32 bytes")
	ErrCiphertext = errors.New("secretbox: malformed ciphertext")
)

// Box cifra y descifra con una clave fija. La clave se inyecta al construir;
// no hay estado global de proceso.
type Box struct {
	aead cipher.AEAD
}

// New crea un Box desde una clave en base64 estándar (openssl rand -base64 32).
func New(keyB64 string) (*Box, error) {
	k, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keyB64))
	if err != nil {
		return nil, fmt.Errorf("secretbox: decode key: %w", err)
	}
	if len(k) != requiredKeyLength {
		return nil, ErrKeyLength
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal cifra plainText y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Seal(plainText string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}

	ct := b.aead.Seal(nil, nonce, []byte(plainText), nil)

	return base64.StdEncoding.EncodeToString(nonce) + sep +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra un valor producido por Seal.
func (b *Box) Open(sealed string) (string, error) {
	parts := strings.SplitN(sealed, sep, 2)
	if len(parts) != 2 {
		return "", ErrCiphertext
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSizeGCM {
		return "", ErrCiphertext
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrCiphertext
	}

	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: open: %w", err)
	}
	return string(pt), nil
}
