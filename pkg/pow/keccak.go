package pow

import (
	"math"

	"github.com/screa/pow-miner/internal/crypto"
)

// KeccakScorer scores a message by the number of leading zero bits of its
// Keccak-256 digest, nonce included:
//
//	score = 2^zeros / len(message)
type KeccakScorer struct{}

// Score implements Scorer.
func (KeccakScorer) Score(message []byte) float64 {
	if len(message) == 0 {
		return 0
	}
	zeros := crypto.LeadingZeroBits(crypto.Keccak256(message))
	return math.Pow(2, float64(zeros)) / float64(len(message))
}
