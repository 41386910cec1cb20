// Package filecrypt encrypts file contents at rest using envelope
// encryption: each file gets a fresh random content key, sealed chunk by
// chunk with XSalsa20-Poly1305, and the content key is wrapped under the
// server master key. The wrapped key, the wrap nonce and the base nonce of
// the first chunk are persisted alongside the file version; the content
// key itself never leaves process memory and is zeroed before return.
package filecrypt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the content and master key size in bytes.
	KeySize = 32
	// NonceSize is the secretbox nonce size in bytes.
	NonceSize = 24

	chunkSize       = 8192
	sealedChunkSize = chunkSize + secretbox.Overhead
)

var (
	ErrKeyUnwrap      = errors.New("cannot unwrap content key")
	ErrAuthentication = errors.New("chunk authentication failed")
)

// Envelope carries the persisted key material for one encrypted payload.
// All fields are opaque byte strings, base64 encoded when serialized.
type Envelope struct {
	WrappedKey     []byte `json:"wrapped_key"`
	WrapNonce      []byte `json:"wrap_nonce"`
	ChunkNonceSeed []byte `json:"chunk_nonce_seed"`
}

type Engine struct {
	masterKey [KeySize]byte
}

// NewEngine builds an engine around a 32-byte master key. The key is an
// explicit configuration value; the engine never reads the environment.
func NewEngine(masterKey []byte) (*Engine, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(masterKey))
	}
	e := &Engine{}
	copy(e.masterKey[:], masterKey)
	return e, nil
}

// EncryptStream reads plaintext from src in 8 KiB chunks, seals each chunk
// with a fresh content key and a counter nonce, and writes the sealed
// chunks to dst as they are produced. Memory use is bounded by one chunk.
// The returned envelope holds the wrapped content key and the exact base
// nonce used for the first chunk.
func (e *Engine) EncryptStream(dst io.Writer, src io.Reader) (*Envelope, error) {
	var contentKey [KeySize]byte
	if _, err := rand.Read(contentKey[:]); err != nil {
		return nil, err
	}
	defer zeroKey(&contentKey)

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	seed := make([]byte, NonceSize)
	copy(seed, nonce[:])

	buf := make([]byte, chunkSize)
	sealed := make([]byte, 0, sealedChunkSize)
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			out := secretbox.Seal(sealed[:0], buf[:n], &nonce, &contentKey)
			if _, werr := dst.Write(out); werr != nil {
				return nil, werr
			}
			incrementNonce(&nonce)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	var wrapNonce [NonceSize]byte
	if _, err := rand.Read(wrapNonce[:]); err != nil {
		return nil, err
	}
	wrapped := secretbox.Seal(nil, contentKey[:], &wrapNonce, &e.masterKey)

	return &Envelope{
		WrappedKey:     wrapped,
		WrapNonce:      wrapNonce[:],
		ChunkNonceSeed: seed,
	}, nil
}

// DecryptStream unwraps the content key from the envelope, replays the
// stored chunk nonce sequence and writes the recovered plaintext to dst.
// A failed chunk authentication aborts the whole operation; bytes already
// written to dst must be discarded by the caller.
func (e *Engine) DecryptStream(dst io.Writer, src io.Reader, env *Envelope) error {
	contentKey, err := e.unwrapKey(env)
	if err != nil {
		return err
	}
	defer zeroKey(contentKey)

	var nonce [NonceSize]byte
	if len(env.ChunkNonceSeed) != NonceSize {
		return ErrKeyUnwrap
	}
	copy(nonce[:], env.ChunkNonceSeed)

	buf := make([]byte, sealedChunkSize)
	opened := make([]byte, 0, chunkSize)
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if n <= secretbox.Overhead {
				return ErrAuthentication
			}
			out, ok := secretbox.Open(opened[:0], buf[:n], &nonce, contentKey)
			if !ok {
				return ErrAuthentication
			}
			if _, werr := dst.Write(out); werr != nil {
				return werr
			}
			incrementNonce(&nonce)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// EncryptData is the in-memory variant for payloads that fit comfortably
// in memory. The data nonce doubles as the envelope's chunk nonce seed.
func (e *Engine) EncryptData(data []byte) ([]byte, *Envelope, error) {
	var contentKey [KeySize]byte
	if _, err := rand.Read(contentKey[:]); err != nil {
		return nil, nil, err
	}
	defer zeroKey(&contentKey)

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, nil, err
	}
	sealed := secretbox.Seal(nil, data, &nonce, &contentKey)

	var wrapNonce [NonceSize]byte
	if _, err := rand.Read(wrapNonce[:]); err != nil {
		return nil, nil, err
	}
	wrapped := secretbox.Seal(nil, contentKey[:], &wrapNonce, &e.masterKey)

	return sealed, &Envelope{
		WrappedKey:     wrapped,
		WrapNonce:      wrapNonce[:],
		ChunkNonceSeed: nonce[:],
	}, nil
}

func (e *Engine) DecryptData(sealed []byte, env *Envelope) ([]byte, error) {
	contentKey, err := e.unwrapKey(env)
	if err != nil {
		return nil, err
	}
	defer zeroKey(contentKey)

	var nonce [NonceSize]byte
	if len(env.ChunkNonceSeed) != NonceSize {
		return nil, ErrKeyUnwrap
	}
	copy(nonce[:], env.ChunkNonceSeed)

	data, ok := secretbox.Open(nil, sealed, &nonce, contentKey)
	if !ok {
		return nil, ErrAuthentication
	}
	return data, nil
}

func (e *Engine) unwrapKey(env *Envelope) (*[KeySize]byte, error) {
	if env == nil || len(env.WrapNonce) != NonceSize {
		return nil, ErrKeyUnwrap
	}
	var wrapNonce [NonceSize]byte
	copy(wrapNonce[:], env.WrapNonce)
	raw, ok := secretbox.Open(nil, env.WrappedKey, &wrapNonce, &e.masterKey)
	if !ok || len(raw) != KeySize {
		return nil, ErrKeyUnwrap
	}
	key := new([KeySize]byte)
	copy(key[:], raw)
	zeroBytes(raw)
	return key, nil
}

// incrementNonce treats the nonce as a little-endian counter and adds one,
// matching libsodium's sodium_increment. Each chunk of a stream is sealed
// under a distinct nonce; reuse under the same key would break the scheme.
func incrementNonce(n *[NonceSize]byte) {
	for i := 0; i < NonceSize; i++ {
		n[i]++
		if n[i] != 0 {
			return
		}
	}
}

func zeroKey(key *[KeySize]byte) {
	for i := range key {
		key[i] = 0
	}
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
