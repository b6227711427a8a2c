package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/screa/pow-miner/pkg/miner"
	"github.com/screa/pow-miner/pkg/pow"
)

// Scorer names accepted by --scorer
const (
	ScorerCurl   = "curl"
	ScorerKeccak = "keccak"
)

// Errors
var (
	ErrNoMessageSpecified = errors.New("must specify either --message or --message-file")
	ErrBothMessages       = errors.New("--message and --message-file are mutually exclusive")
	ErrInvalidTarget      = errors.New("--target-score must be a positive finite number")
	ErrUnknownScorer      = errors.New("unknown scorer")
	ErrInvalidBatchSize   = fmt.Errorf("--batch-size must be between 1 and %d", miner.MaxBatchSize)
)

// Config holds the application configuration
type Config struct {
	Workers     int
	TargetScore float64
	Message     string // hex, nonce field included
	MessageFile string
	AppendNonce bool // append an empty 8-byte nonce field to the message
	Scorer      string
	RandomStart bool
	StartNonce  uint64
	BatchSize   int
	Timeout     time.Duration
	Verbose     bool
	LogFile     string
	LogInterval int // Logging interval in seconds
	MetricsAddr string
	Split       bool // print the nonce as low/high 32-bit halves
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Workers:     runtime.NumCPU(),
		Scorer:      ScorerCurl,
		RandomStart: true,
		BatchSize:   miner.DefaultBatchSize,
		LogInterval: 5, // Default 5 seconds
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Message == "" && c.MessageFile == "" {
		return ErrNoMessageSpecified
	}
	if c.Message != "" && c.MessageFile != "" {
		return ErrBothMessages
	}
	if c.TargetScore <= 0 || math.IsInf(c.TargetScore, 0) || math.IsNaN(c.TargetScore) {
		return ErrInvalidTarget
	}
	if c.BatchSize < 1 || c.BatchSize > miner.MaxBatchSize {
		return ErrInvalidBatchSize
	}
	if _, err := c.GetScorer(); err != nil {
		return err
	}
	return nil
}

// MinerConfig returns the search engine configuration
func (c *Config) MinerConfig() miner.Config {
	return miner.Config{
		Workers:     c.Workers,
		BatchSize:   c.BatchSize,
		RandomStart: c.RandomStart,
		StartNonce:  c.StartNonce,
	}
}

// GetScorer returns the scoring function selected by --scorer
func (c *Config) GetScorer() (pow.Scorer, error) {
	switch strings.ToLower(c.Scorer) {
	case ScorerCurl, "":
		return pow.NewCurlScorer(), nil
	case ScorerKeccak:
		return pow.KeccakScorer{}, nil
	default:
		return nil, fmt.Errorf("%w %q, want %s or %s", ErrUnknownScorer, c.Scorer, ScorerCurl, ScorerKeccak)
	}
}

// GetTargetDescription returns a human-readable description of the target
func (c *Config) GetTargetDescription(messageLen int) string {
	desc := fmt.Sprintf("score >= %.2f (%s)", c.TargetScore, c.Scorer)
	if strings.EqualFold(c.Scorer, ScorerCurl) || c.Scorer == "" {
		desc += fmt.Sprintf(", %d trailing zero trits", pow.TargetZeros(messageLen, c.TargetScore))
	}
	return desc
}

// GetMessage returns the message to mine, nonce field included
func (c *Config) GetMessage() ([]byte, error) {
	var (
		msg []byte
		err error
	)
	switch {
	case c.MessageFile != "":
		msg, err = readMessageFromFile(c.MessageFile)
	case c.Message != "":
		msg, err = decodeHex(c.Message)
	default:
		// This should not happen if validation passes
		return nil, ErrNoMessageSpecified
	}
	if err != nil {
		return nil, err
	}

	if c.AppendNonce {
		msg = append(msg, make([]byte, pow.NonceSize)...)
	}
	if len(msg) < pow.NonceSize {
		return nil, fmt.Errorf("message is %d bytes, need at least %d for the nonce field", len(msg), pow.NonceSize)
	}
	return msg, nil
}

// readMessageFromFile reads a hex encoded message from a file
func readMessageFromFile(filename string) ([]byte, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return decodeHex(string(content))
}

func decodeHex(s string) ([]byte, error) {
	code := strings.TrimSpace(s)

	// Remove 0x prefix if present
	if len(code) >= 2 && (code[:2] == "0x" || code[:2] == "0X") {
		code = code[2:]
	}

	b, err := hex.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("invalid message hex: %w", err)
	}
	return b, nil
}
