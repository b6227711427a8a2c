package worker

import (
	"math"
	"sync/atomic"

	"github.com/screa/pow-miner/pkg/pow"
	"github.com/screa/pow-miner/pkg/types"
)

// Worker tests the candidates of a single WorkerTask against a target score
type Worker struct {
	task     types.WorkerTask
	scorer   pow.Scorer
	target   float64
	attempts *atomic.Uint64
	onBest   func(types.Best)

	// Private copy of the message; only the nonce field is rewritten
	buf []byte

	offset    uint64 // next offset to test, relative to task.StartNonce
	maxOffset uint64
	exhausted bool
	best      float64
}

// NewWorker creates a worker for task. The message is copied, so the caller's
// slice is never written. attempts is shared between workers of one search.
func NewWorker(task types.WorkerTask, message []byte, scorer pow.Scorer, target float64, attempts *atomic.Uint64) *Worker {
	buf := make([]byte, len(message))
	copy(buf, message)

	maxOffset := uint64(math.MaxUint64)
	if task.Limit > 0 {
		maxOffset = task.Limit - 1
	}
	if task.Stride < 1 {
		task.Stride = 1
	}

	return &Worker{
		task:      task,
		scorer:    scorer,
		target:    target,
		attempts:  attempts,
		buf:       buf,
		offset:    uint64(task.Index),
		maxOffset: maxOffset,
		exhausted: task.Index < 0 || (task.Limit > 0 && uint64(task.Index) >= task.Limit),
		best:      math.Inf(-1),
	}
}

// OnBest registers fn to be called whenever this worker sees a candidate
// scoring higher than any it has seen before.
func (w *Worker) OnBest(fn func(types.Best)) {
	w.onBest = fn
}

// Task returns the task the worker was created with
func (w *Worker) Task() types.WorkerTask {
	return w.task
}

// Exhausted reports whether every candidate of the task has been tested
func (w *Worker) Exhausted() bool {
	return w.exhausted
}

// Test scores a single nonce and reports whether it meets the target
func (w *Worker) Test(nonce uint64) (float64, bool) {
	pow.PutNonce(w.buf, nonce)
	score := w.scorer.Score(w.buf)
	if score > w.best {
		w.best = score
		if w.onBest != nil {
			w.onBest(types.Best{Nonce: nonce, Score: score, Worker: w.task.Index})
		}
	}
	return score, score >= w.target
}

// ProcessBatch tests up to batchSize candidates. It returns the first nonce
// meeting the target, or found == false if the batch ran out or the task was
// exhausted.
func (w *Worker) ProcessBatch(batchSize int) (nonce uint64, score float64, found bool) {
	tested := uint64(0)
	defer func() {
		if w.attempts != nil {
			w.attempts.Add(tested)
		}
	}()

	stride := uint64(w.task.Stride)
	for i := 0; i < batchSize && !w.exhausted; i++ {
		nonce = w.task.StartNonce + w.offset
		if w.maxOffset-w.offset < stride {
			w.exhausted = true
		} else {
			w.offset += stride
		}

		tested++
		if score, ok := w.Test(nonce); ok {
			return nonce, score, true
		}
	}

	return 0, 0, false
}
