// Package credvault reads and writes the encrypted credential payloads
// shared with the rest of the deployment: AES-256-GCM with the
// authentication tag carried as a separate base64 field.
package credvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

const (
	keyLen = 32
	ivLen  = 12
	tagLen = 16
)

// Payload is the wire form of an encrypted secret.
type Payload struct {
	IV   string `json:"iv"`
	Tag  string `json:"tag"`
	Data string `json:"data"`
}

type Key [keyLen]byte

// KeyFromBase64 decodes a base64 key and checks its length.
func KeyFromBase64(s string) (Key, error) {
	var key Key
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(raw) != keyLen {
		return key, fmt.Errorf("encryption key must decode to %d bytes, got %d", keyLen, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// Credentials are held in memory only for the duration of one sync and
// must never end up in logs; Scrub should be deferred as soon as they
// are decrypted.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Credentials) Scrub() {
	c.Username = ""
	c.Password = ""
}

// LogValue keeps credentials out of structured logs even when a value is
// passed to a logger by accident.
func (c Credentials) LogValue() any {
	return "[redacted]"
}

func Encrypt(key Key, plaintext []byte) (Payload, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return Payload{}, err
	}
	gcm, err := cipher.NewGCMWithTagSize(block, tagLen)
	if err != nil {
		return Payload{}, err
	}

	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Payload{}, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	data := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	return Payload{
		IV:   base64.StdEncoding.EncodeToString(iv),
		Tag:  base64.StdEncoding.EncodeToString(tag),
		Data: base64.StdEncoding.EncodeToString(data),
	}, nil
}

func Decrypt(key Key, payload Payload) ([]byte, error) {
	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	tag, err := base64.StdEncoding.DecodeString(payload.Tag)
	if err != nil {
		return nil, fmt.Errorf("decode tag: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithTagSize(block, tagLen)
	if err != nil {
		return nil, err
	}

	// the tag travels detached, stdlib GCM wants it appended
	return gcm.Open(nil, iv, append(data, tag...), nil)
}

func EncryptJSON(key Key, v any) (Payload, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return Payload{}, err
	}
	return Encrypt(key, plaintext)
}

func DecryptJSON[T any](key Key, payload Payload) (T, error) {
	var out T
	plaintext, err := Decrypt(key, payload)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(plaintext, &out)
	if err != nil {
		return out, err
	}
	return out, nil
}
