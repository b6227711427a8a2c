package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/screa/pow-miner/internal/config"
	logpkg "github.com/screa/pow-miner/internal/logger"
	"github.com/screa/pow-miner/internal/metrics"
	minerpkg "github.com/screa/pow-miner/pkg/miner"
	"github.com/screa/pow-miner/pkg/types"
)

// Exit codes
const (
	exitFound     = 0
	exitError     = 1
	exitExhausted = 2
	exitCancelled = 130
)

var (
	cfg    = config.NewConfig()
	logger *logpkg.Logger
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "pow-miner",
		Short: "Multi-threaded proof-of-work nonce miner",
		Long: `Finds an 8-byte nonce for a message so that its proof-of-work score
meets a target. The last 8 bytes of the message are the nonce field and are
overwritten with the nonce, little-endian.`,
		SilenceUsage: true,
		RunE:         runMiner,
	}

	rootCmd.Flags().IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	rootCmd.Flags().Float64VarP(&cfg.TargetScore, "target-score", "t", 0, "Minimum proof-of-work score (required)")
	rootCmd.Flags().StringVarP(&cfg.Message, "message", "m", "", "Message including nonce field (hex)")
	rootCmd.Flags().StringVarP(&cfg.MessageFile, "message-file", "F", "", "File containing the message (hex)")
	rootCmd.Flags().BoolVarP(&cfg.AppendNonce, "append-nonce", "a", false, "Append an empty 8-byte nonce field to the message")
	rootCmd.Flags().StringVarP(&cfg.Scorer, "scorer", "s", config.ScorerCurl, "Scoring function: curl or keccak")
	rootCmd.Flags().BoolVar(&cfg.RandomStart, "random-start", true, "Start from a random nonce")
	rootCmd.Flags().Uint64Var(&cfg.StartNonce, "start-nonce", 0, "Start nonce when --random-start=false")
	rootCmd.Flags().IntVarP(&cfg.BatchSize, "batch-size", "b", minerpkg.DefaultBatchSize, fmt.Sprintf("Candidates tested between cancellation checks (max %d)", minerpkg.MaxBatchSize))
	rootCmd.Flags().DurationVar(&cfg.Timeout, "timeout", 0, "Give up after this long (0 = no limit)")
	rootCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	rootCmd.Flags().StringVarP(&cfg.LogFile, "log-file", "l", "", "Log file for progress tracking (default: stdout)")
	rootCmd.Flags().IntVarP(&cfg.LogInterval, "log-interval", "i", 5, "Progress logging interval in seconds when verbose")
	rootCmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
	rootCmd.Flags().BoolVar(&cfg.Split, "split", false, "Also print the nonce as low/high 32-bit halves")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func runMiner(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	message, err := cfg.GetMessage()
	if err != nil {
		return err
	}
	scorer, err := cfg.GetScorer()
	if err != nil {
		return err
	}

	if err := setupLogging(); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Printf("Starting proof-of-work miner with %d workers...", cfg.Workers)
	logger.Printf("Target: %s", cfg.GetTargetDescription(len(message)))
	logger.Printf("Message: %d bytes", len(message))

	opts := []minerpkg.Option{minerpkg.WithLogger(logger)}
	if cfg.Verbose && cfg.LogInterval > 0 {
		opts = append(opts, minerpkg.WithProgressInterval(time.Duration(cfg.LogInterval)*time.Second))
	}
	if cfg.MetricsAddr != "" {
		m, err := serveMetrics(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		opts = append(opts, minerpkg.WithMetrics(m))
	}

	miner := minerpkg.NewMiner(cfg.MinerConfig(), scorer, opts...)

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	job, err := miner.Start(ctx, message, cfg.TargetScore)
	if err != nil {
		return err
	}

	// Set up signal handling for Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-job.Done():
	case <-sigChan:
		logger.Println("Received interrupt signal. Stopping workers...")
		job.Cancel()
	}

	result, err := job.Wait()
	if err != nil {
		if best := job.Best(); best != nil {
			logger.Printf("Best candidate: nonce %d, score %.2f (worker %d)", best.Nonce, best.Score, best.Worker)
		}
		logger.Printf("No nonce found after %d attempts: %v", job.Attempts(), err)
		return err
	}

	printResult(result)
	return nil
}

func printResult(result *types.Result) {
	logger.Printf("Found nonce!")
	logger.Printf("Nonce: %d (0x%016x)", result.Nonce, result.Nonce)
	if cfg.Split {
		lo, hi := types.SplitNonce(result.Nonce)
		logger.Printf("Nonce halves: low %d, high %d", lo, hi)
	}
	logger.Printf("Score: %.2f", result.Score)
	logger.Printf("Worker: %d", result.Worker)
	logger.Printf("Attempts: %d", result.Attempts)
	logger.Printf("Duration: %v", result.Duration)

	// Calculate rate safely
	rate := 0.0
	if result.Duration.Seconds() > 0 {
		rate = float64(result.Attempts) / result.Duration.Seconds()
	}
	logger.Printf("Rate: %.2f hashes/sec", rate)

	fmt.Println(result.Nonce)
}

func setupLogging() error {
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logger = logpkg.NewWriter(file, cfg.Verbose)
		return nil
	}
	logger = logpkg.NewWriter(os.Stderr, cfg.Verbose)
	return nil
}

func serveMetrics(addr string) (*metrics.Metrics, error) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
	logger.Printf("Serving metrics on %s/metrics", addr)
	return m, nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, minerpkg.ErrExhausted):
		return exitExhausted
	case errors.Is(err, minerpkg.ErrCancelled):
		return exitCancelled
	case err == nil:
		return exitFound
	default:
		return exitError
	}
}
