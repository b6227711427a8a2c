package types

import "time"

// Result represents a successful search
type Result struct {
	Nonce    uint64
	Score    float64
	Worker   int // index of the worker that found Nonce
	Attempts uint64
	Duration time.Duration
}

// Best is the highest-scoring candidate seen so far in a search
type Best struct {
	Nonce  uint64
	Score  float64
	Worker int
}

// WorkerTask describes the slice of the nonce space a worker searches.
// The worker tests StartNonce+j (wrapping) for every offset j with
// j%Stride == Index and j < Limit. A Limit of 0 means the whole 64-bit space.
type WorkerTask struct {
	Index      int
	Stride     int
	StartNonce uint64
	Limit      uint64
}

// Count returns the number of candidates in the task, saturating at the
// maximum uint64 when the task covers the whole domain with stride 1.
func (t WorkerTask) Count() uint64 {
	stride := uint64(t.Stride)
	idx := uint64(t.Index)
	if t.Limit == 0 {
		// offsets idx, idx+stride, ... up to 2^64-1
		n := (^uint64(0)-idx)/stride + 1
		if n == 0 {
			return ^uint64(0)
		}
		return n
	}
	if idx >= t.Limit {
		return 0
	}
	return (t.Limit-1-idx)/stride + 1
}

// SplitNonce splits a nonce into its low and high 32-bit halves for callers
// that cannot hold a 64-bit integer losslessly.
func SplitNonce(nonce uint64) (lo, hi uint32) {
	return uint32(nonce), uint32(nonce >> 32)
}

// JoinNonce is the inverse of SplitNonce.
func JoinNonce(lo, hi uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}
