package miner

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/screa/pow-miner/internal/logger"
	"github.com/screa/pow-miner/internal/metrics"
	"github.com/screa/pow-miner/pkg/pow"
	"github.com/screa/pow-miner/pkg/types"
)

const (
	// DefaultBatchSize is the number of candidates a worker tests between
	// cancellation checks.
	DefaultBatchSize = 256

	// MaxBatchSize bounds BatchSize, and with it how long a worker runs
	// after cancellation or a peer's win.
	MaxBatchSize = 4096
)

// Errors
var (
	ErrInvalidInput = errors.New("invalid search input")
	ErrExhausted    = errors.New("nonce space exhausted")
	ErrCancelled    = errors.New("search cancelled")
)

// Config holds the miner configuration
type Config struct {
	Workers     int    // parallel searchers, <= 0 means runtime.NumCPU()
	BatchSize   int    // candidates between cancellation checks, <= 0 means DefaultBatchSize, capped at MaxBatchSize
	RandomStart bool   // draw a random start nonce for every search
	StartNonce  uint64 // start nonce when RandomStart is false
	Limit       uint64 // number of candidates to search, 0 means all 2^64
}

// DefaultConfig returns a configuration using every CPU and a random start
// nonce per search.
func DefaultConfig() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		BatchSize:   DefaultBatchSize,
		RandomStart: true,
	}
}

// Option configures optional miner collaborators
type Option func(*Miner)

// WithLogger sets the logger used for search lifecycle messages
func WithLogger(l *logger.Logger) Option {
	return func(m *Miner) { m.logger = l }
}

// WithMetrics sets the prometheus collectors updated by every search
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Miner) { m.metrics = mt }
}

// WithProgressInterval enables periodic progress logging while a search runs
func WithProgressInterval(d time.Duration) Option {
	return func(m *Miner) { m.progressInterval = d }
}

// Miner searches for nonces giving a message a target proof-of-work score.
// A Miner is safe for concurrent use; every search owns its workers and
// cancellation.
type Miner struct {
	config           Config
	scorer           pow.Scorer
	logger           *logger.Logger
	metrics          *metrics.Metrics
	progressInterval time.Duration
	attempts         atomic.Uint64
}

// NewMiner creates a new miner instance
func NewMiner(cfg Config, scorer pow.Scorer, opts ...Option) *Miner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	cfg.BatchSize = min(cfg.BatchSize, MaxBatchSize)

	m := &Miner{
		config: cfg,
		scorer: scorer,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Nop()
	}
	return m
}

// Workers returns the number of workers used per search
func (m *Miner) Workers() int {
	return m.config.Workers
}

// Attempts returns the number of candidates tested over the miner's lifetime
func (m *Miner) Attempts() uint64 {
	return m.attempts.Load()
}

// Search blocks until a nonce giving message a score of at least target is
// found, the nonce space is exhausted or ctx is cancelled. Which qualifying
// nonce is returned is not deterministic.
func (m *Miner) Search(ctx context.Context, message []byte, target float64) (uint64, error) {
	res, err := m.SearchResult(ctx, message, target)
	if err != nil {
		return 0, err
	}
	return res.Nonce, nil
}

// SearchResult is Search, returning the score and statistics of the winner
func (m *Miner) SearchResult(ctx context.Context, message []byte, target float64) (*types.Result, error) {
	job, err := m.Start(ctx, message, target)
	if err != nil {
		return nil, err
	}
	return job.Wait()
}

// Start launches a search and returns immediately. The search stops when a
// nonce is found, the space is exhausted, ctx is cancelled or Job.Cancel is
// called.
func (m *Miner) Start(ctx context.Context, message []byte, target float64) (*Job, error) {
	if err := m.validate(message, target); err != nil {
		m.metrics.ObserveSearch(metrics.OutcomeInvalid, 0, 0)
		return nil, err
	}

	start := m.config.StartNonce
	if m.config.RandomStart {
		start = m.randomStart()
	}

	tasks := Tasks(m.config.Workers, start, m.config.Limit)
	m.logger.Debugf("Starting search: %d workers, %d byte message, target %.2f, start nonce %d",
		len(tasks), len(message), target, start)

	job := newJob(ctx, m, tasks, pow.Prepare(m.scorer, message), message, target)
	job.run()
	return job, nil
}

// Tasks partitions the offsets [0, limit) between n workers by striding.
// Worker i tests start+i, start+i+n, start+i+2n, ... wrapping at 2^64.
// A limit of 0 covers all 2^64 nonces.
func Tasks(n int, start, limit uint64) []types.WorkerTask {
	if n < 1 {
		n = 1
	}
	tasks := make([]types.WorkerTask, n)
	for i := range tasks {
		tasks[i] = types.WorkerTask{
			Index:      i,
			Stride:     n,
			StartNonce: start,
			Limit:      limit,
		}
	}
	return tasks
}

func (m *Miner) validate(message []byte, target float64) error {
	if len(message) < pow.NonceSize {
		return fmt.Errorf("%w: message is %d bytes, need at least %d for the nonce",
			ErrInvalidInput, len(message), pow.NonceSize)
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return fmt.Errorf("%w: target score %v is not finite", ErrInvalidInput, target)
	}
	if m.scorer == nil {
		return fmt.Errorf("%w: no scorer configured", ErrInvalidInput)
	}
	return nil
}

func (m *Miner) randomStart() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		m.logger.Warnf("Unable to read random start nonce, using %d: %v", m.config.StartNonce, err)
		return m.config.StartNonce
	}
	return binary.LittleEndian.Uint64(b[:])
}
