package filecrypt

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	engine, err := NewEngine(key)
	require.NoError(t, err)
	return engine
}

func TestNewEngineRejectsBadKeyLength(t *testing.T) {
	_, err := NewEngine(make([]byte, 16))
	require.Error(t, err)
}

func TestStreamRoundTrip(t *testing.T) {
	engine := newTestEngine(t)
	// sizes around the chunk boundary plus a multi-chunk payload
	for _, size := range []int{0, 1, 8191, 8192, 8193, 50000} {
		plaintext := make([]byte, size)
		_, err := rand.Read(plaintext)
		require.NoError(t, err)

		var ciphertext bytes.Buffer
		env, err := engine.EncryptStream(&ciphertext, bytes.NewReader(plaintext))
		require.NoError(t, err)
		require.Len(t, env.ChunkNonceSeed, NonceSize)
		require.Len(t, env.WrapNonce, NonceSize)

		var recovered bytes.Buffer
		require.NoError(t, engine.DecryptStream(&recovered, bytes.NewReader(ciphertext.Bytes()), env))
		require.Equal(t, size, recovered.Len(), "size %d", size)
		require.True(t, bytes.Equal(plaintext, recovered.Bytes()), "size %d", size)
	}
}

func TestDecryptStreamDetectsTamper(t *testing.T) {
	engine := newTestEngine(t)
	plaintext := make([]byte, 50000)
	_, err := rand.Read(plaintext)
	require.NoError(t, err)

	var ciphertext bytes.Buffer
	env, err := engine.EncryptStream(&ciphertext, bytes.NewReader(plaintext))
	require.NoError(t, err)

	for _, pos := range []int{0, 100, 8192, ciphertext.Len() - 1} {
		corrupted := make([]byte, ciphertext.Len())
		copy(corrupted, ciphertext.Bytes())
		corrupted[pos] ^= 0x01

		var out bytes.Buffer
		err := engine.DecryptStream(&out, bytes.NewReader(corrupted), env)
		require.ErrorIs(t, err, ErrAuthentication, "corruption at %d", pos)
		// nothing past the corrupted chunk may be written
		require.LessOrEqual(t, out.Len(), pos)
	}
}

func TestDecryptStreamWrongMasterKey(t *testing.T) {
	engine := newTestEngine(t)
	var ciphertext bytes.Buffer
	env, err := engine.EncryptStream(&ciphertext, bytes.NewReader([]byte("payload")))
	require.NoError(t, err)

	other := newTestEngine(t)
	var out bytes.Buffer
	err = other.DecryptStream(&out, bytes.NewReader(ciphertext.Bytes()), env)
	require.ErrorIs(t, err, ErrKeyUnwrap)
	require.Zero(t, out.Len())
}

func TestDecryptStreamRejectsCorruptedEnvelope(t *testing.T) {
	engine := newTestEngine(t)
	var ciphertext bytes.Buffer
	env, err := engine.EncryptStream(&ciphertext, bytes.NewReader([]byte("payload")))
	require.NoError(t, err)

	env.WrappedKey[0] ^= 0x01
	var out bytes.Buffer
	err = engine.DecryptStream(&out, bytes.NewReader(ciphertext.Bytes()), env)
	require.ErrorIs(t, err, ErrKeyUnwrap)
}

func TestDecryptStreamRequiresOriginalSeed(t *testing.T) {
	engine := newTestEngine(t)
	plaintext := make([]byte, 20000)
	_, err := rand.Read(plaintext)
	require.NoError(t, err)

	var ciphertext bytes.Buffer
	env, err := engine.EncryptStream(&ciphertext, bytes.NewReader(plaintext))
	require.NoError(t, err)

	env.ChunkNonceSeed[0] ^= 0x01
	var out bytes.Buffer
	err = engine.DecryptStream(&out, bytes.NewReader(ciphertext.Bytes()), env)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestDataRoundTrip(t *testing.T) {
	engine := newTestEngine(t)
	plaintext := []byte("small in-memory payload")

	sealed, env, err := engine.EncryptData(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	recovered, err := engine.DecryptData(sealed, env)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)

	sealed[3] ^= 0x01
	_, err = engine.DecryptData(sealed, env)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestIncrementNonce(t *testing.T) {
	var n [NonceSize]byte
	incrementNonce(&n)
	require.Equal(t, byte(1), n[0])

	n[0] = 0xff
	incrementNonce(&n)
	require.Equal(t, byte(0), n[0])
	require.Equal(t, byte(1), n[1])
}
