package util

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// UintKey is a hashed document id, used to pick the shard of a document.
type UintKey uint64

// GenerateSeed returns a random seed so that shard placement differs per engine instance.
func GenerateSeed() uint64 {
	return rand.Uint64()
}

// HashString hashes s with the seeded xxHash64 algorithm.
func HashString(s string, seed uint64) UintKey {
	d := xxhash.NewWithSeed(seed)
	_, _ = d.WriteString(s)
	return UintKey(d.Sum64())
}
