package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/creachadair/atomicfile"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate")
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't
// exist.
func EnsureRoot(rootDir string) error {
	for _, dir := range []string{
		rootDir,
		filepath.Join(rootDir, defaultConfigDir),
		filepath.Join(rootDir, defaultDataDir),
	} {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return fmt.Errorf("could not create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteConfigFile renders config using the template and writes it to
// the config file under rootDir.
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(filepath.Join(rootDir, defaultConfigFilePath))
}

// ConfigFile returns the path of the config file under rootDir.
func ConfigFile(rootDir string) string {
	return filepath.Join(rootDir, defaultConfigFilePath)
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}

	_, err := atomicfile.WriteAll(path, &buffer, 0644)
	return err
}

func writeDefaultConfigFileIfNone(rootDir string) error {
	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		return WriteConfigFile(rootDir, DefaultConfig())
	}
	return nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: Any path below can be absolute (e.g. "/var/plasma/data") or
# relative to the home directory (e.g. "data"). The home directory is
# "$HOME/.plasma" by default, but could be changed via $PLASMAHOME env variable
# or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# Mode of the node: authority | participant
mode = "{{ .BaseConfig.Mode }}"

# Database backend: goleveldb | memdb
db-backend = "{{ .BaseConfig.DBBackend }}"

# Database directory
db-dir = "{{ js .BaseConfig.DBPath }}"

# Output level for logging: debug | info | error
log-level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log-format = "{{ .BaseConfig.LogFormat }}"

# Depth of the sparse Merkle tree keyed by coin slot. Every participant
# must use the same depth; 64 is the only accepted value.
tree-depth = {{ .BaseConfig.TreeDepth }}

#######################################################################
###                 Authority Configuration Options                 ###
#######################################################################
[authority]

# Path to the JSON file containing the key that signs blocks
priv-key-file = "{{ js .Authority.PrivKey }}"

# How often the open block is sealed and its root published
submit-period = "{{ .Authority.SubmitPeriod }}"

# Seal blocks even when they carry no transaction
submit-empty = {{ .Authority.SubmitEmpty }}

# Number of committed blocks kept decoded in memory
block-cache-size = {{ .Authority.BlockCacheSize }}

# Capacity of the deposit event subscription
deposit-buffer = {{ .Authority.DepositBuffer }}

# Accept transfers without checking their predecessor.
# Only for rehearsing fraud; never enable on a real chain.
unsafe-skip-spend-checks = {{ .Authority.UnsafeSkipSpendChecks }}

#######################################################################
###                Participant Configuration Options                ###
#######################################################################
[participant]

# Path to the JSON file containing the participant's key
priv-key-file = "{{ js .Participant.PrivKey }}"

# Address of the child chain JSON-RPC service
child-chain-addr = "{{ .Participant.ChildChainAddress }}"

# Number of on-chain block roots kept in memory
root-cache-size = {{ .Participant.RootCacheSize }}

# Maximum parallel fetches while building a coin history
history-concurrency = {{ .Participant.HistoryConcurrency }}

# Retries of idempotent child chain reads. Transactions are never retried.
rpc-retries = {{ .Participant.RPCRetries }}
rpc-retry-wait = "{{ .Participant.RPCRetryWait }}"

# Interval between polls while waiting for a new block
poll-period = "{{ .Participant.PollPeriod }}"

#######################################################################
###                  Watcher Configuration Options                  ###
#######################################################################
[watcher]

# Capacity of each watcher's event subscription
event-buffer = {{ .Watcher.EventBuffer }}

# Challenge fraudulent exits automatically
auto-challenge = {{ .Watcher.AutoChallenge }}

# Respond to challenges against own exits automatically
auto-respond = {{ .Watcher.AutoRespond }}

# How often, and how far apart, an exit watcher rebuilds a coin history
# that failed or that trails checkpoints the child chain has not published
history-retries = {{ .Watcher.HistoryRetries }}
history-retry-wait = "{{ .Watcher.HistoryRetryWait }}"

#######################################################################
###                    RPC Server Configuration Options             ###
#######################################################################
[rpc]

# TCP or UNIX socket address for the RPC server to listen on
laddr = "{{ .RPC.ListenAddress }}"

# A list of origins a cross-domain request can be executed from
# Default value '[]' disables cors support
# Use '["*"]' to allow any origin
cors-allowed-origins = [{{ range .RPC.CORSAllowedOrigins }}{{ printf "%q, " . }}{{end}}]

# A list of methods the client is allowed to use with cross-domain requests
cors-allowed-methods = [{{ range .RPC.CORSAllowedMethods }}{{ printf "%q, " . }}{{end}}]

# A list of non simple headers the client is allowed to use with cross-domain requests
cors-allowed-headers = [{{ range .RPC.CORSAllowedHeaders }}{{ printf "%q, " . }}{{end}}]

# Activate unsafe RPC commands like submit_block
unsafe = {{ .RPC.Unsafe }}

# Maximum number of simultaneous connections.
# 0 - unlimited.
max-open-connections = {{ .RPC.MaxOpenConnections }}

# Read and write timeout of a request
timeout-read = "{{ .RPC.TimeoutRead }}"

# Maximum size of request body, in bytes
max-body-bytes = {{ .RPC.MaxBodyBytes }}

# Maximum size of request header, in bytes
max-header-bytes = {{ .RPC.MaxHeaderBytes }}

#######################################################################
###               Instrumentation Configuration Options             ###
#######################################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus-listen-addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Maximum number of simultaneous connections.
# 0 - unlimited.
max-open-connections = {{ .Instrumentation.MaxOpenConnections }}

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`

/****** these are for test settings ***********/

// ResetTestRoot creates a fresh root under dir holding a test config file.
func ResetTestRoot(dir, testName string) (*Config, error) {
	// create a unique, concurrency-safe test directory under dir
	rootDir, err := os.MkdirTemp(dir, testName+"_")
	if err != nil {
		return nil, err
	}
	if err := EnsureRoot(rootDir); err != nil {
		return nil, err
	}
	if err := writeDefaultConfigFileIfNone(rootDir); err != nil {
		return nil, err
	}

	config := TestConfig().SetRoot(rootDir)
	return config, nil
}
