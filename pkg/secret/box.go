// Package secret sella y abre secretos almacenados (p. ej. la secret key de JoFotara)
// con ChaCha20-Poly1305 bajo una llave maestra de 32 bytes.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Prefix marca los valores sellados.
const Prefix = "enc:v1:"

var (
	ErrNoKey     = errors.New("llave maestra no configurada")
	ErrMalformed = errors.New("secreto sellado malformado")
)

// Box sella y abre secretos. El valor cero (sin llave) deja pasar texto plano.
type Box struct {
	key []byte
}

// NewBox recibe la llave maestra en base64 estándar. Cadena vacía = Box sin llave.
func NewBox(masterKeyB64 string) (*Box, error) {
	if masterKeyB64 == "" {
		return &Box{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil {
		return nil, fmt.Errorf("llave maestra: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("llave maestra: se esperaban %d bytes, hay %d", chacha20poly1305.KeySize, len(key))
	}
	return &Box{key: key}, nil
}

// IsSealed indica si el valor tiene el prefijo de sellado.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, Prefix)
}

// Seal cifra plaintext y devuelve enc:v1:<base64(nonce|ciphertext)>.
func (b *Box) Seal(plaintext string) (string, error) {
	if len(b.key) == 0 {
		return "", ErrNoKey
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open descifra un valor sellado. Un valor sin prefijo se devuelve tal cual.
func (b *Box) Open(v string) (string, error) {
	if !IsSealed(v) {
		return v, nil
	}
	if len(b.key) == 0 {
		return "", ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, Prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformed
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(pt), nil
}

// GenerateKey devuelve una llave maestra nueva en base64.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
