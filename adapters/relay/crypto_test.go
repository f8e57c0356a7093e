package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := GenerateSymKey()
	require.NoError(t, err)
	require.Len(t, key, 64) // 32 bytes hex

	plaintext := []byte(`{"jsonrpc":"2.0","id":1,"method":"wc_sessionPropose"}`)
	envelope, err := Seal(key, plaintext)
	require.NoError(t, err)
	assert.NotContains(t, envelope, "wc_sessionPropose")

	opened, err := Open(key, envelope)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpenWrongKey(t *testing.T) {
	key1, err := GenerateSymKey()
	require.NoError(t, err)
	key2, err := GenerateSymKey()
	require.NoError(t, err)

	envelope, err := Seal(key1, []byte("secret"))
	require.NoError(t, err)

	_, err = Open(key2, envelope)
	assert.Error(t, err)
}

func TestOpenGarbage(t *testing.T) {
	key, err := GenerateSymKey()
	require.NoError(t, err)

	_, err = Open(key, "not base64!!")
	assert.Error(t, err)

	_, err = Open(key, "YWJj") // valid base64, shorter than a nonce
	assert.Error(t, err)
}

func TestTopicFromKeyDeterministic(t *testing.T) {
	key, err := GenerateSymKey()
	require.NoError(t, err)

	t1, err := TopicFromKey(key)
	require.NoError(t, err)
	t2, err := TopicFromKey(key)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
	assert.Len(t, t1, 64)

	other, err := GenerateSymKey()
	require.NoError(t, err)
	t3, err := TopicFromKey(other)
	require.NoError(t, err)
	assert.NotEqual(t, t1, t3)
}

func TestDeriveSessionKey(t *testing.T) {
	pairingKey, err := GenerateSymKey()
	require.NoError(t, err)

	nonce := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	k1, err := DeriveSessionKey(pairingKey, nonce)
	require.NoError(t, err)
	k2, err := DeriveSessionKey(pairingKey, nonce)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, pairingKey, k1)

	k3, err := DeriveSessionKey(pairingKey, []byte{9, 9, 9})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}
