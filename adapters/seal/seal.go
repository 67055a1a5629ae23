// Package seal encrypts persisted session tokens with NaCl secretbox.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const prefix = "sb1:"

// ErrOpen is returned when a sealed value cannot be decrypted.
var ErrOpen = errors.New("seal: cannot open sealed value")

// Sealer seals and opens strings. The zero value stores plaintext.
type Sealer struct {
	key *[32]byte
}

// New derives a key from secret. An empty secret disables sealing.
func New(secret string) Sealer {
	if secret == "" {
		return Sealer{}
	}
	k := sha256.Sum256([]byte(secret))
	return Sealer{key: &k}
}

// Enabled reports whether values are encrypted.
func (s Sealer) Enabled() bool {
	return s.key != nil
}

// Seal encrypts plain. Empty values stay empty.
func (s Sealer) Seal(plain string) (string, error) {
	if s.key == nil || plain == "" {
		return plain, nil
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, s.key)
	return prefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal. Unsealed values pass through so
// a store written before a secret was configured stays readable.
func (s Sealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, prefix) {
		return sealed, nil
	}
	if s.key == nil {
		return "", ErrOpen
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, prefix))
	if err != nil || len(raw) < 24 {
		return "", ErrOpen
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, s.key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}
