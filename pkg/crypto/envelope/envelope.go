// Package envelope implements the symmetric AEAD envelope that protects
// every encrypted overlay datagram: ChaCha20-Poly1305 or AES-256-GCM, both
// with a 12-byte nonce and a 16-byte authentication tag, following the
// same Seal/Open shape as the teacher repo's pkg/crypto/symmetric package.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Method identifies the AEAD algorithm negotiated for a peer session. It is
// the value carried on the wire as the header's crypto_method byte.
type Method byte

const (
	MethodNone             Method = 0
	MethodChaCha20Poly1305 Method = 1
	MethodAES256GCM        Method = 2
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodChaCha20Poly1305:
		return "chacha20poly1305"
	case MethodAES256GCM:
		return "aes256gcm"
	default:
		return fmt.Sprintf("method(%d)", m)
	}
}

// NonceSize and TagSize are fixed by the wire specification for both
// implemented AEAD variants.
const (
	NonceSize = 12
	TagSize   = 16
	KeySize   = 32
)

var (
	// ErrUnknownMethod is returned by ParseMethod for a byte outside 0..2.
	ErrUnknownMethod = errors.New("envelope: unknown crypto method")
	// ErrAESUnavailable is returned when AES-256-GCM is selected on a build
	// or platform without AES support.
	ErrAESUnavailable = errors.New("envelope: AES-256 not available on this build")
	// ErrAuthFailed is returned when AEAD tag verification fails.
	ErrAuthFailed = errors.New("envelope: authentication failed")
	// ErrShortCiphertext is returned by Decrypt when buf is too small to
	// contain the authentication tag (the nonce is passed separately).
	ErrShortCiphertext = errors.New("envelope: ciphertext shorter than tag")
)

// ParseMethod validates a wire crypto_method byte.
func ParseMethod(b byte) (Method, error) {
	switch Method(b) {
	case MethodNone, MethodChaCha20Poly1305, MethodAES256GCM:
		return Method(b), nil
	default:
		return 0, ErrUnknownMethod
	}
}

// Init performs one-time global initialization. It is a no-op on every
// platform Go targets here: both AEAD variants are pure software and need
// no explicit startup step, unlike a cgo-backed implementation that might
// probe for hardware AES support during process init.
func Init() {}

// AES256Available reports whether AES-256-GCM can be used. Go's crypto/aes
// is always present in pure-Go builds (it falls back to a constant-time
// software implementation when the platform lacks AES instructions), so
// this is always true; the hook exists so callers (and decode) have a
// single place to gate on it, matching platforms where that would not
// hold.
func AES256Available() bool { return true }

// State is an opaque symmetric crypto context: one of None,
// ChaCha20Poly1305{key}, or AES256GCM{key}. It is long-lived, one per peer
// session in the enclosing system; apart from Encrypt advancing its nonce
// counter, this package only reads it.
type State struct {
	method Method
	aead   cipher.AEAD
	nonces *nonceGenerator
}

// NewNone returns the unencrypted crypto state.
func NewNone() *State { return &State{method: MethodNone} }

// FromKey builds a State from a raw 32-byte key for the given method.
func FromKey(method Method, key [KeySize]byte) (*State, error) {
	switch method {
	case MethodNone:
		return NewNone(), nil
	case MethodChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key[:])
		if err != nil {
			return nil, fmt.Errorf("envelope: chacha20poly1305: %w", err)
		}
		return &State{method: method, aead: aead, nonces: newNonceGenerator()}, nil
	case MethodAES256GCM:
		if !AES256Available() {
			return nil, ErrAESUnavailable
		}
		block, err := aes.NewCipher(key[:])
		if err != nil {
			return nil, fmt.Errorf("envelope: aes: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("envelope: aes-gcm: %w", err)
		}
		return &State{method: method, aead: aead, nonces: newNonceGenerator()}, nil
	default:
		return nil, ErrUnknownMethod
	}
}

// FromSharedKey derives a 32-byte key from a passphrase via a fixed KDF
// (see kdf.go) and builds a State for method.
func FromSharedKey(method Method, passphrase string) (*State, error) {
	if method == MethodNone {
		return NewNone(), nil
	}
	key := deriveKey(passphrase)
	return FromKey(method, key)
}

// Method reports which AEAD variant (or none) this state uses.
func (s *State) Method() Method {
	if s == nil {
		return MethodNone
	}
	return s.method
}

// AdditionalBytes is the AEAD authentication tag overhead: 16 for both
// implemented variants, 0 for None.
func (s *State) AdditionalBytes() int {
	if s == nil || s.method == MethodNone {
		return 0
	}
	return TagSize
}

// Encrypt seals buf[:plaintextLen] in place, writes a fresh nonce into
// nonceOut, and returns the resulting ciphertext length
// (plaintextLen + AdditionalBytes()). aad is authenticated but not
// encrypted. Encrypt must never be called on a None state.
func (s *State) Encrypt(buf []byte, plaintextLen int, nonceOut *[NonceSize]byte, aad []byte) (int, error) {
	if s == nil || s.method == MethodNone {
		return 0, errors.New("envelope: Encrypt called with no crypto configured")
	}
	nonce := s.nonces.next()
	*nonceOut = nonce

	sealed := s.aead.Seal(buf[:0], nonce[:], buf[:plaintextLen], aad)
	return len(sealed), nil
}

// Decrypt opens buf in place using nonce and aad, trimming buf to the
// plaintext length. buf must hold exactly ciphertext||tag with no other
// framing. Decrypt must never be called on a None state.
func (s *State) Decrypt(buf []byte, nonce [NonceSize]byte, aad []byte) ([]byte, error) {
	if s == nil || s.method == MethodNone {
		return nil, errors.New("envelope: Decrypt called with no crypto configured")
	}
	if len(buf) < TagSize {
		return nil, ErrShortCiphertext
	}
	plain, err := s.aead.Open(buf[:0], nonce[:], buf, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return plain, nil
}
