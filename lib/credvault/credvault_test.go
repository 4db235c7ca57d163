package credvault

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) Key {
	raw := make([]byte, keyLen)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	key, err := KeyFromBase64(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	return key
}

func TestRoundTrip(t *testing.T) {
	key := testKey(t)

	payload, err := EncryptJSON(key, Credentials{
		Username: "jdupont",
		Password: "hunter2",
	})
	require.NoError(t, err)
	require.NotEmpty(t, payload.IV)
	require.NotEmpty(t, payload.Tag)
	require.NotEmpty(t, payload.Data)

	creds, err := DecryptJSON[Credentials](key, payload)
	require.NoError(t, err)
	require.Equal(t, "jdupont", creds.Username)
	require.Equal(t, "hunter2", creds.Password)
}

func TestDecryptRejectsTamperedTag(t *testing.T) {
	key := testKey(t)

	payload, err := Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	tag, err := base64.StdEncoding.DecodeString(payload.Tag)
	require.NoError(t, err)
	tag[0] ^= 0xff
	payload.Tag = base64.StdEncoding.EncodeToString(tag)

	_, err = Decrypt(key, payload)
	require.Error(t, err)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	payload, err := Encrypt(testKey(t), []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt(testKey(t), payload)
	require.Error(t, err)
}

func TestKeyFromBase64Length(t *testing.T) {
	_, err := KeyFromBase64(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}

func TestScrub(t *testing.T) {
	creds := Credentials{Username: "jdupont", Password: "hunter2"}
	creds.Scrub()
	require.Empty(t, creds.Username)
	require.Empty(t, creds.Password)
}
