/*
Package rand defines methods of obtaining random generators, either
cryptographically secure or deterministic, exposing them through the
familiar math/rand API.

Use NewGenerator when non-deterministic randomness matters (jitter that
must not line up across a fleet of devices). Use NewDeterministicGenerator
in tests and in hot paths where speed beats quality.
*/
package rand

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

type source struct{}

var lock sync.RWMutex

// Seed does nothing when crypto/rand is used as source.
func (_ *source) Seed(_ int64) {}

// Int63 returns uniformly-distributed random (as in CSPRNG) int64 value within [0, 1<<63) range.
// Panics if random generator reader cannot return data.
func (s *source) Int63() int64 {
	return int64(s.Uint64() & ^uint64(1<<63))
}

// Uint64 returns uniformly-distributed random (as in CSPRNG) uint64 value within [0, 1<<64) range.
// Panics if random generator reader cannot return data.
func (_ *source) Uint64() (val uint64) {
	lock.RLock()
	defer lock.RUnlock()
	if err := binary.Read(rand.Reader, binary.BigEndian, &val); err != nil {
		panic(err)
	}
	return
}

// NewGenerator returns a new generator that uses random values from crypto/rand as a source
// (cryptographically secure random number generator).
// Panics if crypto/rand input cannot be read.
func NewGenerator() *mrand.Rand {
	return mrand.New(&source{}) // #nosec G404
}

// NewDeterministicGenerator returns a random generator seeded once from the
// secure source, then fully deterministic. Not for secrets.
func NewDeterministicGenerator() *mrand.Rand {
	randGen := NewGenerator()
	return mrand.New(mrand.NewSource(randGen.Int63())) // #nosec G404
}
