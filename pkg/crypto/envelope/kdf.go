package envelope

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// kdfSalt and kdfIterations fix the passphrase-to-key derivation so that
// two peers configured with the same passphrase always agree on the same
// 32-byte key, without exchanging a salt out of band. This closes the
// "Crypto KDF" open question from the wire specification: the salt is a
// constant tied to this wire version, not per-installation, since the
// shared secret here is the passphrase itself and a random salt would
// have to be transmitted (and authenticated) before either side could
// derive a usable key — defeating its own purpose for a pre-shared
// secret. Rotating the wire version rotates kdfSalt too.
var kdfSalt = []byte("overlaymesh-wire-v1-kdf-salt")

const kdfIterations = 200_000

// deriveKey runs PBKDF2-HMAC-SHA256 over passphrase, returning a key
// stable across processes and restarts for the same passphrase.
func deriveKey(passphrase string) [KeySize]byte {
	derived := pbkdf2.Key([]byte(passphrase), kdfSalt, kdfIterations, KeySize, sha256.New)
	var key [KeySize]byte
	copy(key[:], derived)
	return key
}

// DeriveKey exposes deriveKey for operator tooling (overlaynode keygen)
// that needs to display the key a passphrase maps to, independent of
// building a full State.
func DeriveKey(passphrase string) [KeySize]byte {
	return deriveKey(passphrase)
}
