package wipe

import (
	"github.com/cockroachdb/errors"
)

// CipherKind selects the one-time cipher used by the encrypt pass.
type CipherKind string

const (
	CipherAES256CBC CipherKind = "aes-256-cbc"
	CipherXChaCha20 CipherKind = "xchacha20"
)

// Ciphers lists the accepted cipher names.
var Ciphers = []CipherKind{CipherAES256CBC, CipherXChaCha20}

// ParseCipher validates a cipher name from config or flags.
func ParseCipher(name string) (CipherKind, error) {
	c := CipherKind(name)
	switch c {
	case CipherAES256CBC, CipherXChaCha20:
		return c, nil
	default:
		return "", errors.WithHintf(errors.Newf("unsupported cipher %q", name),
			"use one of %v", Ciphers)
	}
}

// KeyBits reports the key length the cipher is keyed with.
func (c CipherKind) KeyBits() int {
	switch c {
	case CipherAES256CBC, CipherXChaCha20:
		return 256
	}
	return 0
}
