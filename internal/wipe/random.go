package wipe

import (
	"crypto/rand"
	"io"

	"github.com/cockroachdb/errors"
)

// Source supplies cryptographically unpredictable bytes. Implementations
// must not be seeded or replayable.
type Source interface {
	Fill(p []byte) error
}

type cryptoSource struct{}

// CryptoSource reads from the operating system CSPRNG.
var CryptoSource Source = cryptoSource{}

func (cryptoSource) Fill(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := io.ReadFull(rand.Reader, p); err != nil {
		return errors.Wrap(err, "read system randomness")
	}
	return nil
}

// memclr is a variable so the compiler cannot prove the stores are dead.
var memclr = func(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Zero overwrites secret material in memory.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		memclr(b)
	}
}
