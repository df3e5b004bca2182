package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/libs/log"
	tmos "github.com/plasmacash/plasma/libs/os"
	"github.com/plasmacash/plasma/privval"
)

// MakeInitFilesCommand returns the command that initializes a fresh plasma
// home directory for the given mode.
func MakeInitFilesCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:       "init [authority|participant]",
		Short:     "Initializes a plasma configuration and key files",
		ValidArgs: []string{config.ModeAuthority, config.ModeParticipant},
		Args:      cobra.ExactValidArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.Mode = args[0]
			return initFilesWithConfig(conf, logger)
		},
	}
}

func initFilesWithConfig(conf *config.Config, logger log.Logger) error {
	// the dev node signs blocks in both modes
	if err := initKeyFile(conf.Authority.PrivKeyFile(), "authority", logger); err != nil {
		return err
	}
	if conf.Mode == config.ModeParticipant {
		if err := initKeyFile(conf.Participant.PrivKeyFile(), "participant", logger); err != nil {
			return err
		}
	}

	cfgFile := config.ConfigFile(conf.RootDir)
	if tmos.FileExists(cfgFile) {
		logger.Info("Found config file", "path", cfgFile)
		return nil
	}
	if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
		return err
	}
	logger.Info("Generated config", "mode", conf.Mode, "path", cfgFile)
	return nil
}

func initKeyFile(path, role string, logger log.Logger) error {
	if tmos.FileExists(path) {
		logger.Info("Found key file", "role", role, "path", path)
		return nil
	}
	pv, err := privval.LoadOrGenFilePV(path)
	if err != nil {
		return fmt.Errorf("generating %s key: %w", role, err)
	}
	logger.Info("Generated key file", "role", role, "path", path, "addr", pv.Address())
	return nil
}
