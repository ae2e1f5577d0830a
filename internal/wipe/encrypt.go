package wipe

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/chacha20"

	"secureshred/internal/progress"
	"secureshred/internal/storage"
)

// Encryptor re-encrypts a target in place with a key that is never kept.
type Encryptor interface {
	Encrypt(ctx context.Context, h storage.Handle, length int64, progress func(processed int64)) error
}

// EncryptConfig tunes a DiscardEncryptor. Staging is required.
type EncryptConfig struct {
	Cipher       CipherKind
	Source       Source
	Staging      *storage.Staging
	ChunkSize    int
	MaxSpeedMBps float64
	Logger       *zap.Logger
}

// DiscardEncryptor streams a target through a freshly keyed cipher into a
// staging file, writes the ciphertext back over the target and forgets the key.
type DiscardEncryptor struct {
	store  storage.Store
	config EncryptConfig
}

func NewDiscardEncryptor(store storage.Store, config EncryptConfig) *DiscardEncryptor {
	if config.Cipher == "" {
		config.Cipher = CipherAES256CBC
	}
	if config.Source == nil {
		config.Source = CryptoSource
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &DiscardEncryptor{store: store, config: config}
}

// Encrypt reports progress in two halves: reading into staging covers the
// first length/2 bytes and writing back covers the rest.
func (e *DiscardEncryptor) Encrypt(ctx context.Context, h storage.Handle, length int64, onProgress func(int64)) error {
	if length <= 0 {
		return nil
	}
	if e.config.Staging == nil {
		return errors.Mark(errors.New("no staging area configured"), ErrEncrypt)
	}
	if err := e.encrypt(ctx, h, length, onProgress); err != nil {
		return errors.Mark(err, ErrEncrypt)
	}
	return nil
}

func (e *DiscardEncryptor) encrypt(ctx context.Context, h storage.Handle, length int64, onProgress func(int64)) error {
	report := func(n int64) {
		if onProgress != nil {
			onProgress(n)
		}
	}
	half := length / 2

	stage, err := e.config.Staging.Create()
	if err != nil {
		return storage.WithSpaceHint(err)
	}
	defer func() {
		_ = stage.Close()
		if derr := e.config.Staging.Discard(stage.Name()); derr != nil {
			e.config.Logger.Warn("staging file not removed", zap.String("staging", stage.Name()), zap.Error(derr))
		}
	}()

	in, err := e.store.OpenReader(h)
	if err != nil {
		return errors.Wrap(err, "encrypt")
	}
	sealed, err := e.seal(stage, in, length, func(read int64) {
		report(scaleTo(read, length, half))
	})
	_ = in.Close()
	if err != nil {
		return storage.WithSpaceHint(err)
	}
	report(half)

	if _, err := stage.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewind staging file")
	}

	out, err := e.store.OpenWriter(h)
	if err != nil {
		return errors.Wrap(err, "encrypt")
	}
	w := NewThrottledWriter(ctx, out, e.config.MaxSpeedMBps)
	buf := GetBuffer(e.config.ChunkSize)
	defer PutBuffer(buf)

	var copied int64
	for copied < sealed {
		n, rerr := stage.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			copied += int64(m)
			if werr == nil && m < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				_ = out.Close()
				return errors.Wrapf(werr, "write ciphertext to %s", h)
			}
			report(half + scaleTo(copied, sealed, length-half))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = out.Close()
			return errors.Wrap(rerr, "read staging file")
		}
	}
	if copied != sealed {
		_ = out.Close()
		return errors.Newf("staging file short: %d of %d bytes", copied, sealed)
	}
	if err := storage.Flush(out); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, "flush %s", h)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, "close %s", h)
	}
	report(length)
	e.config.Logger.Debug("encrypt pass written",
		zap.String("target", string(h)), zap.String("cipher", string(e.config.Cipher)), zap.Int64("bytes", sealed))
	return nil
}

// seal encrypts up to length bytes of in into dst and returns the number of
// ciphertext bytes produced. Key material lives only inside this call.
func (e *DiscardEncryptor) seal(dst io.Writer, in io.Reader, length int64, onRead func(int64)) (int64, error) {
	cw := &countingWriter{w: dst}
	enc, err := e.newCipherWriter(cw)
	if err != nil {
		return 0, err
	}

	buf := GetBuffer(e.config.ChunkSize)
	defer PutBuffer(buf)

	var read int64
	for read < length {
		want := int64(len(buf))
		if remaining := length - read; remaining < want {
			want = remaining
		}
		n, rerr := in.Read(buf[:want])
		if n > 0 {
			if _, err := enc.Write(buf[:n]); err != nil {
				_ = enc.Close()
				return 0, errors.Wrap(err, "encrypt stream")
			}
			read += int64(n)
			onRead(read)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = enc.Close()
			return 0, errors.Wrap(rerr, "read target")
		}
	}
	if err := enc.Close(); err != nil {
		return 0, errors.Wrap(err, "finish encrypt stream")
	}
	// Ciphertext must cover every byte that was on the target.
	if cw.n < length {
		return 0, errors.Newf("target shorter than expected: read %d of %d bytes", read, length)
	}
	return cw.n, nil
}

func (e *DiscardEncryptor) newCipherWriter(dst io.Writer) (io.WriteCloser, error) {
	switch e.config.Cipher {
	case CipherAES256CBC:
		key := make([]byte, 32)
		iv := make([]byte, aes.BlockSize)
		defer Zero(key)
		if err := e.fillAll(key, iv); err != nil {
			return nil, err
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			Zero(iv)
			return nil, errors.Wrap(err, "cipher setup")
		}
		return newCBCWriter(dst, cipher.NewCBCEncrypter(block, iv), iv), nil

	case CipherXChaCha20:
		key := make([]byte, chacha20.KeySize)
		nonce := make([]byte, chacha20.NonceSizeX)
		defer Zero(key, nonce)
		if err := e.fillAll(key, nonce); err != nil {
			return nil, err
		}
		stream, err := chacha20.NewUnauthenticatedCipher(key, nonce)
		if err != nil {
			return nil, errors.Wrap(err, "cipher setup")
		}
		return &streamWriter{sw: cipher.StreamWriter{S: stream, W: writerOnly{dst}}}, nil
	}
	return nil, errors.Newf("unknown cipher %q", e.config.Cipher)
}

func (e *DiscardEncryptor) fillAll(bufs ...[]byte) error {
	for _, b := range bufs {
		if err := e.config.Source.Fill(b); err != nil {
			Zero(bufs...)
			return errors.Wrap(err, "generate one-time key")
		}
	}
	return nil
}

// cbcWriter applies CBC with PKCS#7 padding to a byte stream.
type cbcWriter struct {
	dst     io.Writer
	mode    cipher.BlockMode
	iv      []byte
	pending []byte
	out     []byte
}

func newCBCWriter(dst io.Writer, mode cipher.BlockMode, iv []byte) *cbcWriter {
	return &cbcWriter{dst: dst, mode: mode, iv: iv, pending: make([]byte, 0, mode.BlockSize())}
}

func (c *cbcWriter) Write(p []byte) (int, error) {
	bs := c.mode.BlockSize()
	total := len(p)

	if len(c.pending) > 0 {
		need := bs - len(c.pending)
		if need > len(p) {
			need = len(p)
		}
		c.pending = append(c.pending, p[:need]...)
		p = p[need:]
		if len(c.pending) < bs {
			return total, nil
		}
		if err := c.emit(c.pending); err != nil {
			return 0, err
		}
		Zero(c.pending)
		c.pending = c.pending[:0]
	}

	full := len(p) - len(p)%bs
	if full > 0 {
		if err := c.emit(p[:full]); err != nil {
			return 0, err
		}
	}
	c.pending = append(c.pending, p[full:]...)
	return total, nil
}

func (c *cbcWriter) emit(plain []byte) error {
	if cap(c.out) < len(plain) {
		Zero(c.out)
		c.out = make([]byte, len(plain))
	}
	out := c.out[:len(plain)]
	c.mode.CryptBlocks(out, plain)
	_, err := c.dst.Write(out)
	return err
}

// Close writes the final padded block and wipes buffered plaintext.
func (c *cbcWriter) Close() error {
	defer func() {
		Zero(c.pending[:cap(c.pending)], c.out, c.iv)
	}()
	bs := c.mode.BlockSize()
	pad := bs - len(c.pending)
	for i := 0; i < pad; i++ {
		c.pending = append(c.pending, byte(pad))
	}
	return c.emit(c.pending)
}

type streamWriter struct {
	sw cipher.StreamWriter
}

func (s *streamWriter) Write(p []byte) (int, error) { return s.sw.Write(p) }
func (s *streamWriter) Close() error                { return nil }

// writerOnly hides Close so cipher.StreamWriter cannot close the staging file.
type writerOnly struct{ io.Writer }

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func scaleTo(done, total, span int64) int64 {
	if total <= 0 {
		return span
	}
	if done > total {
		done = total
	}
	return progress.MulDiv(done, span, total)
}
