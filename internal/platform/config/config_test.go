package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGateway(t *testing.T) {
	t.Run("defaults with seed", func(t *testing.T) {
		t.Setenv("GATEWAY_SIGNER_SEED", "00")
		cfg, err := LoadGateway()
		require.NoError(t, err)
		assert.Equal(t, ":3033", cfg.Addr)
		assert.Equal(t, 10, cfg.Vendor.MatchLevel)
		assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
		assert.Empty(t, cfg.Redis.URL)
	})

	t.Run("requires exactly one signer source", func(t *testing.T) {
		t.Setenv("GATEWAY_SIGNER_SEED", "")
		t.Setenv("GATEWAY_SIGNER_SECRET", "")
		_, err := LoadGateway()
		require.Error(t, err)

		t.Setenv("GATEWAY_SIGNER_SEED", "00")
		t.Setenv("GATEWAY_SIGNER_SECRET", "secret")
		_, err = LoadGateway()
		require.Error(t, err)
	})

	t.Run("overrides from environment", func(t *testing.T) {
		t.Setenv("GATEWAY_SIGNER_SECRET", "secret")
		t.Setenv("GATEWAY_INITIAL_SEQUENCE", "77")
		t.Setenv("GATEWAY_REQUEST_TIMEOUT", "5s")
		cfg, err := LoadGateway()
		require.NoError(t, err)
		assert.Equal(t, uint64(77), cfg.InitialSequence)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	})
}

func TestLoadNode(t *testing.T) {
	t.Run("gateway key is required", func(t *testing.T) {
		t.Setenv("LEDGER_GATEWAY_PUBLIC_KEY", "")
		_, err := LoadNode()
		require.Error(t, err)
	})

	t.Run("parses broker list", func(t *testing.T) {
		t.Setenv("LEDGER_GATEWAY_PUBLIC_KEY", "ab")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
		cfg, err := LoadNode()
		require.NoError(t, err)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "never", cfg.Ledger.PrunePolicy)
		assert.Contains(t, cfg.String(), "kafka=true")
		assert.Equal(t, 1024, cfg.Kafka.BufferSize)
		assert.Equal(t, 5*time.Second, cfg.Kafka.ProduceTimeout)
	})

	t.Run("event buffer must be positive", func(t *testing.T) {
		t.Setenv("LEDGER_GATEWAY_PUBLIC_KEY", "ab")
		t.Setenv("KAFKA_BUFFER_SIZE", "0")
		_, err := LoadNode()
		require.ErrorContains(t, err, "KAFKA_BUFFER_SIZE")
	})
}
