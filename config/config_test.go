package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.ValidateBasic())

	cfg.SetRoot("/foo")
	assert.Equal(t, filepath.Join("/foo", "data"), cfg.DBDir())
	assert.Equal(t, filepath.Join("/foo", "config", "authority_key.json"), cfg.Authority.PrivKeyFile())
	assert.Equal(t, filepath.Join("/foo", "config", "participant_key.json"), cfg.Participant.PrivKeyFile())

	cfg.Participant.PrivKey = "/abs/key.json"
	assert.Equal(t, "/abs/key.json", cfg.Participant.PrivKeyFile())
}

func TestConfigValidateBasic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TreeDepth = 256
	assert.Error(t, cfg.ValidateBasic())

	cfg = DefaultConfig()
	cfg.Mode = "miner"
	assert.Error(t, cfg.ValidateBasic())

	cfg = DefaultConfig()
	cfg.LogFormat = "xml"
	assert.Error(t, cfg.ValidateBasic())
}

func TestConfigValidateBasicSections(t *testing.T) {
	testCases := []struct {
		section string
		mutate  func(*Config)
	}{
		{"authority", func(c *Config) { c.Authority.SubmitPeriod = 0 }},
		{"authority", func(c *Config) { c.Authority.BlockCacheSize = 0 }},
		{"participant", func(c *Config) { c.Participant.ChildChainAddress = "" }},
		{"participant", func(c *Config) { c.Participant.HistoryConcurrency = 0 }},
		{"participant", func(c *Config) { c.Participant.RPCRetries = -1 }},
		{"watcher", func(c *Config) { c.Watcher.EventBuffer = 0 }},
		{"watcher", func(c *Config) { c.Watcher.HistoryRetryWait = 0 }},
		{"rpc", func(c *Config) { c.RPC.TimeoutRead = -time.Second }},
		{"rpc", func(c *Config) { c.RPC.MaxBodyBytes = -1 }},
		{"instrumentation", func(c *Config) { c.Instrumentation.MaxOpenConnections = -1 }},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.section, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.ValidateBasic()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "error in ["+tc.section+"] section")
			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestDefaultDBProvider(t *testing.T) {
	cfg := TestConfig().SetRoot(t.TempDir())

	db, err := DefaultDBProvider(&DBContext{ID: "blockstore", Config: cfg})
	require.NoError(t, err)
	require.NoError(t, db.Set([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	cfg.DBBackend = "goleveldb"
	db, err = DefaultDBProvider(&DBContext{ID: "blockstore", Config: cfg})
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.DirExists(t, filepath.Join(cfg.DBDir(), "blockstore.db"))

	cfg.DBBackend = "rocksdb"
	_, err = DefaultDBProvider(&DBContext{ID: "blockstore", Config: cfg})
	require.Error(t, err)
}

func TestRPCConfigCors(t *testing.T) {
	cfg := TestRPCConfig()
	assert.False(t, cfg.IsCorsEnabled())
	cfg.CORSAllowedOrigins = []string{"*"}
	assert.True(t, cfg.IsCorsEnabled())
}
