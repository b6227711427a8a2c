// Package pow provides proof-of-work scoring functions and helpers for
// reading and writing the trailing 8-byte nonce field of a message.
package pow

import (
	"encoding/binary"
	"errors"
	"math"
)

// NonceSize is the length of the nonce field at the end of a message.
const NonceSize = 8

// LN3 is the natural logarithm of 3.
const LN3 = 1.098612288668109691395245236922525704647490557822749451734694333

// ErrShortMessage is returned when a message cannot hold a nonce field.
var ErrShortMessage = errors.New("message shorter than nonce field")

// Scorer computes the proof-of-work score of a message whose last NonceSize
// bytes hold the nonce. Implementations must be deterministic and safe for
// concurrent use.
type Scorer interface {
	Score(message []byte) float64
}

// Preparer is implemented by scorers that can precompute per-message state.
// The returned Scorer must give the same score as the Preparer for any
// message that differs from the prepared one only in its nonce field.
type Preparer interface {
	Prepare(message []byte) Scorer
}

// Prepare returns s bound to message when s implements Preparer, and s
// otherwise.
func Prepare(s Scorer, message []byte) Scorer {
	if p, ok := s.(Preparer); ok {
		return p.Prepare(message)
	}
	return s
}

// ScoreFunc adapts an ordinary function to the Scorer interface.
type ScoreFunc func(message []byte) float64

// Score calls f(message).
func (f ScoreFunc) Score(message []byte) float64 {
	return f(message)
}

// Nonce reads the little-endian nonce from the end of message.
func Nonce(message []byte) uint64 {
	return binary.LittleEndian.Uint64(message[len(message)-NonceSize:])
}

// PutNonce writes nonce little-endian into the last NonceSize bytes of message.
func PutNonce(message []byte, nonce uint64) {
	binary.LittleEndian.PutUint64(message[len(message)-NonceSize:], nonce)
}

// WithNonce returns a copy of message with nonce written into its nonce field.
func WithNonce(message []byte, nonce uint64) ([]byte, error) {
	if len(message) < NonceSize {
		return nil, ErrShortMessage
	}
	out := make([]byte, len(message))
	copy(out, message)
	PutNonce(out, nonce)
	return out, nil
}

// Verify reports whether nonce gives message a score of at least target.
func Verify(s Scorer, message []byte, nonce uint64, target float64) bool {
	buf, err := WithNonce(message, nonce)
	if err != nil {
		return false
	}
	return s.Score(buf) >= target
}

// TargetZeros returns the number of trailing zero trits a message of the given
// length needs to reach targetScore under CurlScorer.
func TargetZeros(length int, targetScore float64) int {
	return int(math.Ceil(math.Log(float64(length)*targetScore) / LN3))
}
