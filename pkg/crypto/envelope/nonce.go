package envelope

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// nonceGenerator produces unique 12-byte AEAD nonces for a single key:
// a 48-bit big-endian counter followed by a 48-bit random salt. The
// counter guarantees uniqueness within the life of this generator; the
// salt, regenerated whenever the counter would wrap, guarantees that a
// restarted process sharing the same key does not repeat a nonce with
// overwhelming probability. Mirrors the teacher's
// pkg/crypto/symmetric.NonceGenerator.
type nonceGenerator struct {
	counter uint64
	mu      sync.Mutex
	salt    [6]byte
}

func newNonceGenerator() *nonceGenerator {
	ng := &nonceGenerator{}
	ng.regenerateSalt()
	return ng
}

func (ng *nonceGenerator) regenerateSalt() {
	if _, err := rand.Read(ng.salt[:]); err != nil {
		// crypto/rand failing is unrecoverable; panicking here matches the
		// severity of a nonce-uniqueness guarantee we cannot otherwise make.
		panic("envelope: crypto/rand unavailable: " + err.Error())
	}
}

const maxCounter = (uint64(1) << 48) - 1

// next returns the next unique nonce for this generator's key.
func (ng *nonceGenerator) next() [NonceSize]byte {
	var nonce [NonceSize]byte

	c := atomic.AddUint64(&ng.counter, 1)
	if c > maxCounter {
		ng.mu.Lock()
		if atomic.LoadUint64(&ng.counter) > maxCounter {
			ng.regenerateSalt()
			atomic.StoreUint64(&ng.counter, 1)
			c = 1
		} else {
			c = atomic.LoadUint64(&ng.counter)
		}
		ng.mu.Unlock()
	}

	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], c)
	copy(nonce[:6], counterBytes[2:8])

	ng.mu.Lock()
	copy(nonce[6:], ng.salt[:])
	ng.mu.Unlock()

	return nonce
}
