package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/libs/cli"
	"github.com/plasmacash/plasma/libs/log"
)

// EnvPrefix prefixes the environment variables read by plasmad.
const EnvPrefix = "PLASMA"

// ParseConfig retrieves the default environment configuration,
// sets up the plasma root and ensures that the root exists
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point for plasmad.
func RootCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plasmad",
		Short: "Plasma Cash child chain with exit watchers for coin owners",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == versionCommandName {
				return nil
			}

			pconf, err := ParseConfig(conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			if err := config.EnsureRoot(conf.RootDir); err != nil {
				return err
			}
			return log.OverrideWithNewLogger(logger, conf.LogFormat, conf.LogLevel)
		},
	}
	cmd.PersistentFlags().String("log-level", conf.LogLevel, "log level")
	cmd.PersistentFlags().String("log-format", conf.LogFormat, "log format (plain | json)")
	return cli.PrepareBaseCmd(cmd, EnvPrefix, os.ExpandEnv(filepath.Join("$HOME", config.DefaultPlasmaDir)))
}
