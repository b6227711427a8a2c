package miner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/screa/pow-miner/internal/metrics"
	"github.com/screa/pow-miner/pkg/pow"
	"github.com/screa/pow-miner/pkg/types"
	"github.com/screa/pow-miner/pkg/worker"
)

// errSolved is returned by the winning worker to cancel its peers
var errSolved = errors.New("solved")

// Job is a running search
type Job struct {
	miner   *Miner
	tasks   []types.WorkerTask
	scorer  pow.Scorer // prepared for message
	message []byte
	target  float64

	ctx       context.Context // cancelled by the caller or Cancel, not by a winner
	cancel    context.CancelFunc
	cancelled atomic.Bool // set by Cancel
	start     time.Time
	attempts  atomic.Uint64

	// Result slot, written once by the first worker to find a nonce
	won    atomic.Bool
	result types.Result

	mu   sync.RWMutex
	best *types.Best

	done chan struct{}
	err  error
}

// testHookWon is called by the worker that fills the result slot
var testHookWon func(*Job)

func newJob(parent context.Context, m *Miner, tasks []types.WorkerTask, scorer pow.Scorer, message []byte, target float64) *Job {
	ctx, cancel := context.WithCancel(parent)
	j := &Job{
		miner:   m,
		tasks:   tasks,
		scorer:  scorer,
		message: message,
		target:  target,
		ctx:     ctx,
		cancel:  cancel,
		start:   time.Now(),
		done:    make(chan struct{}),
	}
	return j
}

// run starts one goroutine per task and a goroutine collecting the outcome
func (j *Job) run() {
	g, ctx := errgroup.WithContext(j.ctx)

	for _, task := range j.tasks {
		w := worker.NewWorker(task, j.message, j.scorer, j.target, &j.attempts)
		w.OnBest(j.updateBest)
		g.Go(func() error {
			return j.work(ctx, w)
		})
	}

	var progressDone chan struct{}
	if j.miner.progressInterval > 0 {
		progressDone = make(chan struct{})
		go j.periodicLogger(progressDone)
	}

	go func() {
		_ = g.Wait()
		if progressDone != nil {
			close(progressDone)
		}
		j.finish()
	}()
}

// work runs a worker until it wins, is exhausted or ctx is cancelled
func (j *Job) work(ctx context.Context, w *worker.Worker) (err error) {
	m := j.miner
	m.metrics.WorkerStarted()
	defer m.metrics.WorkerStopped()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("Worker %d stopped after panic: %v", w.Task().Index, r)
			m.metrics.WorkerPanicked()
			err = nil
		}
	}()

	for !w.Exhausted() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		nonce, score, found := w.ProcessBatch(m.config.BatchSize)
		if !found {
			continue
		}
		if j.won.CompareAndSwap(false, true) {
			j.result = types.Result{
				Nonce:  nonce,
				Score:  score,
				Worker: w.Task().Index,
			}
			if testHookWon != nil {
				testHookWon(j)
			}
			return errSolved
		}
		return nil
	}

	m.logger.Debugf("Worker %d exhausted its %d candidates", w.Task().Index, w.Task().Count())
	return nil
}

func (j *Job) finish() {
	defer close(j.done)
	defer j.cancel()

	m := j.miner
	elapsed := time.Since(j.start)
	attempts := j.attempts.Load()
	m.attempts.Add(attempts)

	switch {
	case j.won.Load():
		j.result.Attempts = attempts
		j.result.Duration = elapsed
		m.metrics.ObserveSearch(metrics.OutcomeFound, elapsed, attempts)
		m.logger.Debugf("Found nonce %d (score %.2f) by worker %d after %d attempts in %v",
			j.result.Nonce, j.result.Score, j.result.Worker, attempts, elapsed)
	case j.cancelled.Load() || j.ctx.Err() != nil:
		cause := context.Cause(j.ctx)
		if cause == nil {
			cause = context.Canceled
		}
		j.err = fmt.Errorf("%w after %d attempts: %w", ErrCancelled, attempts, cause)
		m.metrics.ObserveSearch(metrics.OutcomeCancelled, elapsed, attempts)
		m.logger.Debugf("Search cancelled after %d attempts in %v", attempts, elapsed)
	default:
		j.err = fmt.Errorf("%w after %d attempts", ErrExhausted, attempts)
		m.metrics.ObserveSearch(metrics.OutcomeExhausted, elapsed, attempts)
		m.logger.Debugf("Search exhausted after %d attempts in %v", attempts, elapsed)
	}
}

// Cancel stops the search. Wait returns ErrCancelled unless a worker had
// already found a nonce.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
	j.cancel()
}

// Done is closed once every worker has stopped
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until every worker has stopped and returns the outcome
func (j *Job) Wait() (*types.Result, error) {
	<-j.done
	if j.err != nil {
		return nil, j.err
	}
	res := j.result
	return &res, nil
}

// Attempts returns the number of candidates tested so far
func (j *Job) Attempts() uint64 {
	return j.attempts.Load()
}

// Best returns the highest-scoring candidate seen so far, or nil
func (j *Job) Best() *types.Best {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.best == nil {
		return nil
	}
	b := *j.best
	return &b
}

func (j *Job) updateBest(b types.Best) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.best == nil || b.Score > j.best.Score {
		j.best = &b
	}
}

// periodicLogger logs search progress at regular intervals
func (j *Job) periodicLogger(done chan struct{}) {
	ticker := time.NewTicker(j.miner.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			attempts := j.attempts.Load()
			elapsed := time.Since(j.start)

			// Calculate rate safely
			rate := 0.0
			if elapsed.Seconds() > 0 {
				rate = float64(attempts) / elapsed.Seconds()
			}

			if best := j.Best(); best != nil {
				j.miner.logger.Infof("Progress: %d attempts, %.2f hashes/sec, best score %.2f of %.2f (nonce %d)",
					attempts, rate, best.Score, j.target, best.Nonce)
			} else {
				j.miner.logger.Infof("Progress: %d attempts, %.2f hashes/sec, no candidates yet", attempts, rate)
			}
		case <-done:
			return
		}
	}
}
