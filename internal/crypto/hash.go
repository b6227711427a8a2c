package crypto

import (
	"math/bits"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Blake2b256Size is the digest size of Blake2b256 in bytes
const Blake2b256Size = blake2b.Size256

// Blake2b256 returns the 32-byte Blake2b digest of data.
func Blake2b256(data []byte) [Blake2b256Size]byte {
	return blake2b.Sum256(data)
}

// Keccak256 calculates the legacy keccak256 hash of the input bytes
func Keccak256(data []byte) []byte {
	return keccak256Bytes(data)
}

// LeadingZeroBits counts the zero bits before the first set bit of b.
func LeadingZeroBits(b []byte) int {
	n := 0
	for _, v := range b {
		if v != 0 {
			return n + bits.LeadingZeros8(v)
		}
		n += 8
	}
	return n
}

// ---- helpers ----

func keccak256Bytes(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(b)
	return h.Sum(nil)
}
