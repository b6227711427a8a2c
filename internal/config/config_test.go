package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screa/pow-miner/pkg/miner"
	"github.com/screa/pow-miner/pkg/pow"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"no message", func(c *Config) { c.Message = "" }, ErrNoMessageSpecified},
		{"both messages", func(c *Config) { c.MessageFile = "msg.hex" }, ErrBothMessages},
		{"zero target", func(c *Config) { c.TargetScore = 0 }, ErrInvalidTarget},
		{"infinite target", func(c *Config) { c.TargetScore = math.Inf(1) }, ErrInvalidTarget},
		{"unknown scorer", func(c *Config) { c.Scorer = "sha1" }, ErrUnknownScorer},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"batch size too large", func(c *Config) { c.BatchSize = 1 << 20 }, ErrInvalidBatchSize},
		{"largest batch size", func(c *Config) { c.BatchSize = miner.MaxBatchSize }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Message = "0101010100000000"
			cfg.TargetScore = 400
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGetMessage(t *testing.T) {
	cfg := NewConfig()
	cfg.Message = "0x0101010100000000"
	msg, err := cfg.GetMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1, 1, 0, 0, 0, 0}, msg)

	cfg.Message = "01"
	_, err = cfg.GetMessage()
	assert.Error(t, err)

	cfg.AppendNonce = true
	msg, err = cfg.GetMessage()
	require.NoError(t, err)
	assert.Len(t, msg, 1+pow.NonceSize)

	cfg.Message = "zz"
	_, err = cfg.GetMessage()
	assert.Error(t, err)
}

func TestGetMessageFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message.hex")
	require.NoError(t, os.WriteFile(path, []byte("  0101010101010101010101010101010101010101\n"), 0o600))

	cfg := NewConfig()
	cfg.MessageFile = path
	cfg.AppendNonce = true
	msg, err := cfg.GetMessage()
	require.NoError(t, err)
	assert.Len(t, msg, 28)
	assert.Equal(t, make([]byte, pow.NonceSize), msg[20:])
}

func TestGetScorer(t *testing.T) {
	cfg := NewConfig()
	s, err := cfg.GetScorer()
	require.NoError(t, err)
	assert.IsType(t, &pow.CurlScorer{}, s)

	cfg.Scorer = "KECCAK"
	s, err = cfg.GetScorer()
	require.NoError(t, err)
	assert.IsType(t, pow.KeccakScorer{}, s)
}

func TestMinerConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Workers = 3
	cfg.RandomStart = false
	cfg.StartNonce = 99

	mc := cfg.MinerConfig()
	assert.Equal(t, 3, mc.Workers)
	assert.False(t, mc.RandomStart)
	assert.Equal(t, uint64(99), mc.StartNonce)
	assert.Equal(t, cfg.BatchSize, mc.BatchSize)
}

func TestGetTargetDescription(t *testing.T) {
	cfg := NewConfig()
	cfg.TargetScore = 400
	assert.Contains(t, cfg.GetTargetDescription(28), "9 trailing zero trits")

	cfg.Scorer = ScorerKeccak
	assert.NotContains(t, cfg.GetTargetDescription(28), "trits")
}
