package config

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	dbm "github.com/tendermint/tm-db"

	"github.com/plasmacash/plasma/crypto/smt"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	// ModeAuthority runs the child chain.
	ModeAuthority = "authority"
	// ModeParticipant runs a coin owner with its watchers.
	ModeParticipant = "participant"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
var (
	DefaultPlasmaDir = ".plasma"
	defaultConfigDir = "config"
	defaultDataDir   = "data"

	defaultConfigFileName = "config.toml"

	defaultAuthorityKeyName   = "authority_key.json"
	defaultParticipantKeyName = "participant_key.json"

	defaultConfigFilePath     = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultAuthorityKeyPath   = filepath.Join(defaultConfigDir, defaultAuthorityKeyName)
	defaultParticipantKeyPath = filepath.Join(defaultConfigDir, defaultParticipantKeyName)
)

// Config defines the top level configuration for a plasma node
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for each role
	Authority   *AuthorityConfig   `mapstructure:"authority"`
	Participant *ParticipantConfig `mapstructure:"participant"`
	Watcher     *WatcherConfig     `mapstructure:"watcher"`

	// Options for services
	RPC             *RPCConfig             `mapstructure:"rpc"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a plasma node
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Authority:       DefaultAuthorityConfig(),
		Participant:     DefaultParticipantConfig(),
		Watcher:         DefaultWatcherConfig(),
		RPC:             DefaultRPCConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Authority:       TestAuthorityConfig(),
		Participant:     DefaultParticipantConfig(),
		Watcher:         DefaultWatcherConfig(),
		RPC:             TestRPCConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	cfg.Authority.RootDir = root
	cfg.Participant.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Authority.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [authority] section: %w", err)
	}
	if err := cfg.Participant.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [participant] section: %w", err)
	}
	if err := cfg.Watcher.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [watcher] section: %w", err)
	}
	if err := cfg.RPC.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [rpc] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for a plasma node
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// Mode of the node: authority | participant
	Mode string `mapstructure:"mode"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db-backend"`

	// Database directory
	DBPath string `mapstructure:"db-dir"`

	// Output level for logging: debug | info | error
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`

	// Depth of the sparse Merkle tree. Authority and participants must
	// agree on it; only 64 is accepted.
	TreeDepth int `mapstructure:"tree-depth"`
}

// DefaultBaseConfig returns a default base configuration for a plasma node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Mode:      ModeAuthority,
		DBBackend: "goleveldb",
		DBPath:    "data",
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
		TreeDepth: smt.Depth,
	}
}

// TestBaseConfig returns a base configuration for testing a plasma node
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.DBBackend = "memdb"
	return cfg
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log-format (must be 'plain' or 'json')")
	}
	switch cfg.DBBackend {
	case string(dbm.GoLevelDBBackend), string(dbm.MemDBBackend):
	default:
		return fmt.Errorf("unsupported db-backend %q (must be %q or %q)", cfg.DBBackend, dbm.GoLevelDBBackend, dbm.MemDBBackend)
	}
	switch cfg.Mode {
	case ModeAuthority, ModeParticipant:
	default:
		return fmt.Errorf("unknown mode %q (must be %q or %q)", cfg.Mode, ModeAuthority, ModeParticipant)
	}
	if cfg.TreeDepth != smt.Depth {
		return fmt.Errorf("tree-depth is fixed at %d, got %d", smt.Depth, cfg.TreeDepth)
	}
	return nil
}

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

//-----------------------------------------------------------------------------
// AuthorityConfig

// AuthorityConfig configures the operator of the child chain.
type AuthorityConfig struct {
	RootDir string `mapstructure:"home"`

	// Path to the JSON file containing the key that signs blocks
	PrivKey string `mapstructure:"priv-key-file"`

	// How often the open block is sealed and its root published
	SubmitPeriod time.Duration `mapstructure:"submit-period"`

	// Seal blocks even when they carry no transaction
	SubmitEmpty bool `mapstructure:"submit-empty"`

	// Number of committed blocks kept decoded in memory
	BlockCacheSize int `mapstructure:"block-cache-size"`

	// Capacity of the deposit event subscription
	DepositBuffer int `mapstructure:"deposit-buffer"`

	// Accept transfers without checking their predecessor. Only for
	// rehearsing fraud: the resulting chain is exitable by thieves.
	UnsafeSkipSpendChecks bool `mapstructure:"unsafe-skip-spend-checks"`
}

// DefaultAuthorityConfig returns a default authority configuration.
func DefaultAuthorityConfig() *AuthorityConfig {
	return &AuthorityConfig{
		PrivKey:        defaultAuthorityKeyPath,
		SubmitPeriod:   5 * time.Second,
		SubmitEmpty:    false,
		BlockCacheSize: 1024,
		DepositBuffer:  100,
	}
}

// TestAuthorityConfig returns an authority configuration for testing.
func TestAuthorityConfig() *AuthorityConfig {
	cfg := DefaultAuthorityConfig()
	cfg.SubmitPeriod = 100 * time.Millisecond
	return cfg
}

// PrivKeyFile returns the full path to the authority key file
func (cfg *AuthorityConfig) PrivKeyFile() string {
	return rootify(cfg.PrivKey, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *AuthorityConfig) ValidateBasic() error {
	if cfg.SubmitPeriod <= 0 {
		return errors.New("submit-period must be positive")
	}
	if cfg.BlockCacheSize <= 0 {
		return errors.New("block-cache-size must be positive")
	}
	if cfg.DepositBuffer < 0 {
		return errors.New("deposit-buffer can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// ParticipantConfig

// ParticipantConfig configures a coin owner.
type ParticipantConfig struct {
	RootDir string `mapstructure:"home"`

	// Path to the JSON file containing the participant's key
	PrivKey string `mapstructure:"priv-key-file"`

	// Address of the child chain JSON-RPC service
	ChildChainAddress string `mapstructure:"child-chain-addr"`

	// Number of on-chain block roots kept in memory
	RootCacheSize int `mapstructure:"root-cache-size"`

	// Maximum parallel fetches while building a coin history
	HistoryConcurrency int `mapstructure:"history-concurrency"`

	// Retries of idempotent child chain reads
	RPCRetries   int           `mapstructure:"rpc-retries"`
	RPCRetryWait time.Duration `mapstructure:"rpc-retry-wait"`

	// Interval between polls while waiting for a new block
	PollPeriod time.Duration `mapstructure:"poll-period"`
}

// DefaultParticipantConfig returns a default participant configuration.
func DefaultParticipantConfig() *ParticipantConfig {
	return &ParticipantConfig{
		PrivKey:            defaultParticipantKeyPath,
		ChildChainAddress:  "http://127.0.0.1:8546",
		RootCacheSize:      4096,
		HistoryConcurrency: 8,
		RPCRetries:         4,
		RPCRetryWait:       100 * time.Millisecond,
		PollPeriod:         time.Second,
	}
}

// PrivKeyFile returns the full path to the participant key file
func (cfg *ParticipantConfig) PrivKeyFile() string {
	return rootify(cfg.PrivKey, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *ParticipantConfig) ValidateBasic() error {
	if cfg.ChildChainAddress == "" {
		return errors.New("child-chain-addr must be set")
	}
	if cfg.RootCacheSize <= 0 {
		return errors.New("root-cache-size must be positive")
	}
	if cfg.HistoryConcurrency <= 0 {
		return errors.New("history-concurrency must be positive")
	}
	if cfg.RPCRetries < 0 {
		return errors.New("rpc-retries can't be negative")
	}
	if cfg.PollPeriod <= 0 {
		return errors.New("poll-period must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// WatcherConfig

// WatcherConfig configures the exit and challenge watchers.
type WatcherConfig struct {
	// Capacity of each watcher's event subscription
	EventBuffer int `mapstructure:"event-buffer"`

	// Challenge fraudulent exits automatically
	AutoChallenge bool `mapstructure:"auto-challenge"`

	// Respond to challenges against own exits automatically
	AutoRespond bool `mapstructure:"auto-respond"`

	// How often, and how far apart, a watcher rebuilds a coin history that
	// failed or that trails checkpoints the child chain has not published
	HistoryRetries   int           `mapstructure:"history-retries"`
	HistoryRetryWait time.Duration `mapstructure:"history-retry-wait"`
}

// DefaultWatcherConfig returns a default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		EventBuffer:      100,
		AutoChallenge:    true,
		AutoRespond:      true,
		HistoryRetries:   12,
		HistoryRetryWait: 5 * time.Second,
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *WatcherConfig) ValidateBasic() error {
	if cfg.EventBuffer <= 0 {
		return errors.New("event-buffer must be positive")
	}
	if cfg.HistoryRetries < 0 {
		return errors.New("history-retries can't be negative")
	}
	if cfg.HistoryRetryWait <= 0 {
		return errors.New("history-retry-wait must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// RPCConfig

// RPCConfig defines the configuration options for the child chain RPC server
type RPCConfig struct {
	// TCP or UNIX socket address for the RPC server to listen on
	ListenAddress string `mapstructure:"laddr"`

	// A list of origins a cross-domain request can be executed from.
	// If the special '*' value is present in the list, all origins will be allowed.
	// An origin may contain a wildcard (*) to replace 0 or more characters (i.e.: http://*.domain.com).
	// Only one wildcard can be used per origin.
	CORSAllowedOrigins []string `mapstructure:"cors-allowed-origins"`

	// A list of methods the client is allowed to use with cross-domain requests.
	CORSAllowedMethods []string `mapstructure:"cors-allowed-methods"`

	// A list of non simple headers the client is allowed to use with cross-domain requests.
	CORSAllowedHeaders []string `mapstructure:"cors-allowed-headers"`

	// Activate unsafe RPC commands like submit_block
	Unsafe bool `mapstructure:"unsafe"`

	// Maximum number of simultaneous connections.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max-open-connections"`

	// Read and write timeout of a request
	TimeoutRead time.Duration `mapstructure:"timeout-read"`

	// Maximum size of request body, in bytes
	MaxBodyBytes int64 `mapstructure:"max-body-bytes"`

	// Maximum size of request header, in bytes
	MaxHeaderBytes int `mapstructure:"max-header-bytes"`
}

// DefaultRPCConfig returns a default configuration for the RPC server
func DefaultRPCConfig() *RPCConfig {
	return &RPCConfig{
		ListenAddress:      "tcp://127.0.0.1:8546",
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		CORSAllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "X-Server-Time"},

		Unsafe:             false,
		MaxOpenConnections: 900,
		TimeoutRead:        10 * time.Second,

		MaxBodyBytes:   int64(1000000), // 1MB
		MaxHeaderBytes: 1 << 20,        // same as the net/http default
	}
}

// TestRPCConfig returns a configuration for testing the RPC server
func TestRPCConfig() *RPCConfig {
	cfg := DefaultRPCConfig()
	cfg.ListenAddress = "tcp://127.0.0.1:0"
	cfg.Unsafe = true
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *RPCConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max-open-connections can't be negative")
	}
	if cfg.TimeoutRead < 0 {
		return errors.New("timeout-read can't be negative")
	}
	if cfg.MaxBodyBytes < 0 {
		return errors.New("max-body-bytes can't be negative")
	}
	if cfg.MaxHeaderBytes < 0 {
		return errors.New("max-header-bytes can't be negative")
	}
	return nil
}

// IsCorsEnabled returns true if cross-origin resource sharing is enabled.
func (cfg *RPCConfig) IsCorsEnabled() bool {
	return len(cfg.CORSAllowedOrigins) != 0
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus-listen-addr"`

	// Maximum number of simultaneous connections.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max-open-connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		MaxOpenConnections:   3,
		Namespace:            "plasma",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max-open-connections can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
