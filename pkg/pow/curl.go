package pow

import (
	"math"
	"sync"

	legacy "github.com/iotaledger/iota.go/consts"
	"github.com/iotaledger/iota.go/curl"
	"github.com/iotaledger/iota.go/encoding/b1t6"
	"github.com/iotaledger/iota.go/trinary"
	iotapow "github.com/iotaledger/iota.go/v2/pow"

	"github.com/screa/pow-miner/internal/crypto"
)

// CurlScorer scores a message by hashing everything but the nonce with
// Blake2b-256, encoding digest and nonce to trits, running them through
// Curl-P-81 and counting the trailing zero trits of the result:
//
//	score = 3^zeros / len(message)
//
// CurlScorer implements Preparer; a prepared scorer hashes the message prefix
// once instead of once per candidate.
type CurlScorer struct{}

// NewCurlScorer creates a CurlScorer.
func NewCurlScorer() *CurlScorer {
	return &CurlScorer{}
}

// Score implements Scorer.
func (s *CurlScorer) Score(message []byte) float64 {
	if len(message) < NonceSize {
		return 0
	}
	return iotapow.Score(message)
}

// Prepare implements Preparer.
func (s *CurlScorer) Prepare(message []byte) Scorer {
	if len(message) < NonceSize {
		return s
	}
	digest := crypto.Blake2b256(message[:len(message)-NonceSize])
	return newDigestScorer(digest[:])
}

// TrailingZeros returns the number of trailing zero trits of the Curl hash
// over the encoded digest and nonce.
func (s *CurlScorer) TrailingZeros(digest []byte, nonce uint64) int {
	return newDigestScorer(digest).trailingZeros(nonce)
}

// digestScorer is a CurlScorer bound to the digest of one message prefix
type digestScorer struct {
	digest    []byte
	nonceTrit int // offset of the nonce trits in a Curl block
	pool      sync.Pool
}

type curlScratch struct {
	curl  *curl.Curl
	block trinary.Trits // digest trits followed by nonce trits
	state trinary.Trits
}

func newDigestScorer(digest []byte) *digestScorer {
	d := &digestScorer{
		digest:    append([]byte(nil), digest...),
		nonceTrit: b1t6.EncodedLen(len(digest)),
	}
	d.pool.New = func() any {
		sc := &curlScratch{
			curl:  curl.NewCurlP81().(*curl.Curl),
			block: make(trinary.Trits, legacy.HashTrinarySize),
			state: make(trinary.Trits, curl.StateSize),
		}
		b1t6.Encode(sc.block, d.digest)
		return sc
	}
	return d
}

// Score implements Scorer. Only the nonce field of message is read.
func (d *digestScorer) Score(message []byte) float64 {
	if len(message) < NonceSize {
		return 0
	}
	zeros := d.trailingZeros(Nonce(message))
	return math.Pow(legacy.TrinaryRadix, float64(zeros)) / float64(len(message))
}

func (d *digestScorer) trailingZeros(nonce uint64) int {
	sc := d.pool.Get().(*curlScratch)
	defer d.pool.Put(sc)

	var nonceBytes [NonceSize]byte
	PutNonce(nonceBytes[:], nonce)
	b1t6.Encode(sc.block[d.nonceTrit:], nonceBytes[:])

	sc.curl.Reset()
	if err := sc.curl.Absorb(sc.block); err != nil {
		panic(err)
	}
	// the first HashTrinarySize trits of the state are the hash
	sc.curl.CopyState(sc.state)
	return trinary.TrailingZeros(sc.state[:legacy.HashTrinarySize])
}
