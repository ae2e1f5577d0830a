package wipe

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"secureshred/internal/storage"
)

type fillSource byte

func (s fillSource) Fill(p []byte) error {
	for i := range p {
		p[i] = byte(s)
	}
	return nil
}

type failingSource struct{}

func (failingSource) Fill([]byte) error { return errors.New("entropy unavailable") }

func memStore(t *testing.T, files map[string][]byte) (afero.Fs, *storage.FsStore) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fs, name, data, 0o600))
	}
	return fs, storage.NewFsStore(fs)
}

func TestRandomOverwriterReplacesExactLength(t *testing.T) {
	fs, store := memStore(t, map[string][]byte{"/t.bin": bytes.Repeat([]byte("p"), 1000)})
	ow := NewRandomOverwriter(store, OverwriteConfig{Source: fillSource(0xAB), ChunkSize: 64, Logger: zaptest.NewLogger(t)})

	var seen []int64
	require.NoError(t, ow.Overwrite(context.Background(), "/t.bin", 1000, func(n int64) { seen = append(seen, n) }))

	data, err := afero.ReadFile(fs, "/t.bin")
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 1000), data)
	require.NotEmpty(t, seen)
	assert.Equal(t, int64(1000), seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
}

func TestRandomOverwriterZeroLengthIsNoop(t *testing.T) {
	_, store := memStore(t, nil)
	ow := NewRandomOverwriter(store, OverwriteConfig{})
	// The handle does not exist; a zero-length pass must not touch it.
	assert.NoError(t, ow.Overwrite(context.Background(), "/missing", 0, nil))
}

func TestRandomOverwriterErrors(t *testing.T) {
	_, store := memStore(t, map[string][]byte{"/t.bin": []byte("data")})

	err := NewRandomOverwriter(store, OverwriteConfig{}).Overwrite(context.Background(), "/missing", 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	err = NewRandomOverwriter(store, OverwriteConfig{Source: failingSource{}}).Overwrite(context.Background(), "/t.bin", 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
}

func TestCryptoSourceFills(t *testing.T) {
	a := make([]byte, 64)
	b := make([]byte, 64)
	require.NoError(t, CryptoSource.Fill(a))
	require.NoError(t, CryptoSource.Fill(b))
	assert.NotEqual(t, a, b)
	assert.NoError(t, CryptoSource.Fill(nil))
}

func newTestEncryptor(t *testing.T, fs afero.Fs, store storage.Store, kind CipherKind) (*DiscardEncryptor, *storage.Staging) {
	t.Helper()
	staging, err := storage.NewStaging(fs, "/scratch")
	require.NoError(t, err)
	t.Cleanup(func() { _ = staging.Close() })
	return NewDiscardEncryptor(store, EncryptConfig{
		Cipher:    kind,
		Staging:   staging,
		ChunkSize: 100,
		Logger:    zaptest.NewLogger(t),
	}), staging
}

func TestDiscardEncryptorAES(t *testing.T) {
	plain := bytes.Repeat([]byte("secret-"), 143)[:1000]
	fs, store := memStore(t, map[string][]byte{"/t.bin": plain})
	enc, staging := newTestEncryptor(t, fs, store, CipherAES256CBC)

	var seen []int64
	require.NoError(t, enc.Encrypt(context.Background(), "/t.bin", 1000, func(n int64) { seen = append(seen, n) }))

	data, err := afero.ReadFile(fs, "/t.bin")
	require.NoError(t, err)
	// 1000 bytes pad up to the next 16-byte block.
	assert.Len(t, data, 1008)
	assert.False(t, bytes.Contains(data, []byte("secret-")))
	assert.NotEqual(t, plain, data[:1000])

	require.NotEmpty(t, seen)
	assert.Equal(t, int64(1000), seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}

	left, err := afero.ReadDir(fs, staging.Dir())
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDiscardEncryptorXChaCha20(t *testing.T) {
	plain := bytes.Repeat([]byte{0x11}, 777)
	fs, store := memStore(t, map[string][]byte{"/t.bin": plain})
	enc, staging := newTestEncryptor(t, fs, store, CipherXChaCha20)

	require.NoError(t, enc.Encrypt(context.Background(), "/t.bin", 777, nil))

	data, err := afero.ReadFile(fs, "/t.bin")
	require.NoError(t, err)
	assert.Len(t, data, 777)
	assert.NotEqual(t, plain, data)

	left, err := afero.ReadDir(fs, staging.Dir())
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDiscardEncryptorFailureCleansStaging(t *testing.T) {
	fs, store := memStore(t, map[string][]byte{"/t.bin": []byte("short")})
	enc, staging := newTestEncryptor(t, fs, store, CipherAES256CBC)

	err := enc.Encrypt(context.Background(), "/missing", 10, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncrypt))

	// Fewer bytes on the target than the captured size.
	err = enc.Encrypt(context.Background(), "/t.bin", 4096, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncrypt))

	data, err := afero.ReadFile(fs, "/t.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("short"), data)

	left, err := afero.ReadDir(fs, staging.Dir())
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDiscardEncryptorKeyFailure(t *testing.T) {
	fs, store := memStore(t, map[string][]byte{"/t.bin": []byte("content")})
	enc, _ := newTestEncryptor(t, fs, store, CipherAES256CBC)
	enc.config.Source = failingSource{}

	err := enc.Encrypt(context.Background(), "/t.bin", 7, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncrypt))
}

func TestCBCWriterMatchesPKCS7(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	iv := bytes.Repeat([]byte{9}, aes.BlockSize)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	plain := []byte("the quick brown fox jumps over the lazy dog, twice over")
	var out bytes.Buffer
	w := newCBCWriter(&out, cipher.NewCBCEncrypter(block, iv), append([]byte(nil), iv...))
	// Odd write sizes exercise the partial block buffer.
	for _, n := range []int{3, 13, 1, 20} {
		_, err := w.Write(plain[:n])
		require.NoError(t, err)
		plain = plain[n:]
	}
	_, err = w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ct := out.Bytes()
	require.Zero(t, len(ct)%aes.BlockSize)
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)
	pad := int(pt[len(pt)-1])
	assert.Equal(t, "the quick brown fox jumps over the lazy dog, twice over", string(pt[:len(pt)-pad]))
	assert.Equal(t, bytes.Repeat([]byte{0}, aes.BlockSize), w.iv)
}

func TestThrottledWriter(t *testing.T) {
	var buf bytes.Buffer
	assert.Same(t, io.Writer(&buf), NewThrottledWriter(context.Background(), &buf, 0))

	ctx, cancel := context.WithCancel(context.Background())
	w := NewThrottledWriter(ctx, &buf, 1000)
	cancel()
	payload := bytes.Repeat([]byte("z"), 10<<10)
	n, err := w.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestBufferPoolZeroesOnPut(t *testing.T) {
	buf := GetBuffer(100)
	require.Len(t, buf, 100)
	for i := range buf {
		buf[i] = 0xFF
	}
	PutBuffer(buf)
	assert.Equal(t, make([]byte, cap(buf)), buf[:cap(buf)])
	assert.Nil(t, GetBuffer(0))
}

func TestParseCipher(t *testing.T) {
	c, err := ParseCipher("xchacha20")
	require.NoError(t, err)
	assert.Equal(t, CipherXChaCha20, c)
	assert.Equal(t, 256, c.KeyBits())

	_, err = ParseCipher("rot13")
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}
