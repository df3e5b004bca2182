package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/libs/cli"
	"github.com/plasmacash/plasma/libs/log"
	tmos "github.com/plasmacash/plasma/libs/os"
	"github.com/plasmacash/plasma/privval"
	"github.com/plasmacash/plasma/version"
)

// writeConfigVals writes a toml file with the given values.
// It returns an error if writing was impossible.
func writeConfigVals(dir string, vals map[string]string) error {
	data := ""
	for k, v := range vals {
		data += fmt.Sprintf("%s = \"%s\"\n", k, v)
	}
	cfile := filepath.Join(dir, "config.toml")
	return os.WriteFile(cfile, []byte(data), 0600)
}

// clearConfig clears env vars, the given root dir, and resets viper.
func clearConfig(t *testing.T, dir string) *cfg.Config {
	t.Helper()
	require.NoError(t, os.Unsetenv("PLASMAHOME"))
	require.NoError(t, os.Unsetenv("PLASMA_HOME"))
	require.NoError(t, os.RemoveAll(dir))

	viper.Reset()
	conf := cfg.DefaultConfig()
	conf.SetRoot(dir)

	return conf
}

// prepare new rootCmd
func testRootCmd(conf *cfg.Config) *cobra.Command {
	logger := log.NewNopLogger()
	cmd := RootCommand(conf, logger)
	cmd.AddCommand(
		MakeInitFilesCommand(conf, logger),
		MakeShowAddressCommand(conf),
		MakeResetCommand(conf, logger),
		MakeVersionCommand(),
	)
	// runnable, so the persistent hooks fire without a subcommand
	cmd.RunE = func(*cobra.Command, []string) error { return nil }
	var l string
	cmd.PersistentFlags().String("log", l, "Log")
	return cmd
}

func testSetup(ctx context.Context, t *testing.T, conf *cfg.Config, args []string, env map[string]string) error {
	t.Helper()

	cmd := testRootCmd(conf)
	viper.Set(cli.HomeFlag, conf.RootDir)

	// run with the args and env
	args = append([]string{cmd.Use}, args...)
	return cli.RunWithArgs(ctx, cmd, args, env)
}

func TestRootHome(t *testing.T) {
	defaultRoot := t.TempDir()
	newRoot := filepath.Join(defaultRoot, "something-else")
	cases := []struct {
		args []string
		env  map[string]string
		root string
	}{
		{nil, nil, defaultRoot},
		{[]string{"--home", newRoot}, nil, newRoot},
		{nil, map[string]string{"PLASMAHOME": newRoot}, newRoot},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i, tc := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			conf := clearConfig(t, tc.root)

			err := testSetup(ctx, t, conf, tc.args, tc.env)
			require.NoError(t, err)

			require.Equal(t, tc.root, conf.RootDir)
			require.Equal(t, tc.root, conf.Authority.RootDir)
			require.Equal(t, tc.root, conf.Participant.RootDir)
		})
	}
}

func TestRootFlagsEnv(t *testing.T) {
	// defaults
	defaults := cfg.DefaultConfig()
	defaultDir := t.TempDir()

	defaultLogLvl := defaults.LogLevel

	cases := []struct {
		args     []string
		env      map[string]string
		logLevel string
	}{
		{[]string{"--log", "debug"}, nil, defaultLogLvl},                 // wrong flag
		{[]string{"--log-level", "debug"}, nil, "debug"},                 // right flag
		{nil, map[string]string{"PLASMA_LOW": "debug"}, defaultLogLvl},   // wrong env flag
		{nil, map[string]string{"MT_LOG_LEVEL": "debug"}, defaultLogLvl}, // wrong env prefix
		{nil, map[string]string{"PLASMA_LOG_LEVEL": "debug"}, "debug"},   // right env
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i, tc := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			conf := clearConfig(t, defaultDir)

			err := testSetup(ctx, t, conf, tc.args, tc.env)
			require.NoError(t, err)

			assert.Equal(t, tc.logLevel, conf.LogLevel)
		})
	}
}

func TestRootConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// write non-default config
	nonDefaultLogLvl := "debug"
	cvals := map[string]string{
		"log-level": nonDefaultLogLvl,
	}

	cases := []struct {
		args   []string
		env    map[string]string
		logLvl string
	}{
		{nil, nil, nonDefaultLogLvl},                                  // should load config
		{[]string{"--log-level=info"}, nil, "info"},                   // flag over rides
		{nil, map[string]string{"PLASMA_LOG_LEVEL": "error"}, "error"}, // env over rides
	}

	for i, tc := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			defaultRoot := t.TempDir()
			conf := clearConfig(t, defaultRoot)
			conf.LogLevel = tc.logLvl

			// XXX: path must match cfg.defaultConfigPath
			configFilePath := filepath.Join(defaultRoot, "config")
			err := tmos.EnsureDir(configFilePath, 0700)
			require.NoError(t, err)

			// write the non-defaults to a different path
			err = writeConfigVals(configFilePath, cvals)
			require.NoError(t, err)

			cmd := testRootCmd(conf)
			viper.Set(cli.HomeFlag, defaultRoot)

			// run with the args and env
			tc.args = append([]string{cmd.Use}, tc.args...)
			err = cli.RunWithArgs(ctx, cmd, tc.args, tc.env)
			require.NoError(t, err)

			require.Equal(t, tc.logLvl, conf.LogLevel)
		})
	}
}

func TestInitFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := t.TempDir()
	conf := clearConfig(t, root)
	require.NoError(t, testSetup(ctx, t, conf, []string{"init", cfg.ModeParticipant}, nil))

	assert.Equal(t, cfg.ModeParticipant, conf.Mode)
	assert.True(t, tmos.FileExists(cfg.ConfigFile(root)))
	authority, err := privval.LoadFilePV(conf.Authority.PrivKeyFile())
	require.NoError(t, err)
	participant, err := privval.LoadFilePV(conf.Participant.PrivKeyFile())
	require.NoError(t, err)
	assert.NotEqual(t, authority.Address(), participant.Address())

	// a second init keeps the keys
	conf = clearConfig(t, "")
	conf.SetRoot(root)
	require.NoError(t, testSetup(ctx, t, conf, []string{"init", cfg.ModeParticipant}, nil))
	again, err := privval.LoadFilePV(conf.Authority.PrivKeyFile())
	require.NoError(t, err)
	assert.Equal(t, authority.Address(), again.Address())

	conf = clearConfig(t, "")
	conf.SetRoot(root)
	require.Error(t, testSetup(ctx, t, conf, []string{"init", "validator"}, nil))
}

func TestResetAll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := t.TempDir()
	conf := clearConfig(t, root)
	require.NoError(t, testSetup(ctx, t, conf, []string{"init", cfg.ModeAuthority}, nil))
	require.NoError(t, tmos.EnsureDir(conf.DBDir(), 0700))

	conf = clearConfig(t, "")
	conf.SetRoot(root)
	require.NoError(t, testSetup(ctx, t, conf, []string{"reset", "unsafe-all"}, nil))
	assert.False(t, tmos.FileExists(conf.DBDir()))
	assert.False(t, tmos.FileExists(conf.Authority.PrivKeyFile()))
}

func TestVersionCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf := clearConfig(t, t.TempDir())
	cmd := testRootCmd(conf)
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cli.RunWithArgs(ctx, cmd, []string{cmd.Use, "version", "--verbose"}, nil))

	var info version.Info
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, version.Current(), info)
}
