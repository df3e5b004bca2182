package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/libs/log"
	tmos "github.com/plasmacash/plasma/libs/os"
)

// MakeResetCommand constructs a command that removes the database of
// the specified plasma node.
func MakeResetCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Set of commands to conveniently reset plasma related data",
	}

	resetBlocksCmd := &cobra.Command{
		Use:   "blockstore",
		Short: "Removes all child chain blocks stored by the node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ResetState(conf.DBDir(), logger)
		},
	}

	resetAllCmd := &cobra.Command{
		Use:   "unsafe-all",
		Short: "Removes all plasma data including the key files",
		Long: `Removes all plasma data including the key files.
Only use in testing. Coins held by a removed participant key are lost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ResetAll(conf, logger)
		},
	}

	resetCmd.AddCommand(resetBlocksCmd)
	resetCmd.AddCommand(resetAllCmd)
	return resetCmd
}

// ResetState removes the block store under dbDir.
func ResetState(dbDir string, logger log.Logger) error {
	if !tmos.FileExists(dbDir) {
		logger.Info("Nothing to remove", "dir", dbDir)
		return nil
	}
	if err := os.RemoveAll(dbDir); err != nil {
		return fmt.Errorf("removing %s: %w", dbDir, err)
	}
	logger.Info("Removed all blockstore data", "dir", dbDir)
	return nil
}

// ResetAll removes the block store and both key files.
func ResetAll(conf *config.Config, logger log.Logger) error {
	if err := ResetState(conf.DBDir(), logger); err != nil {
		return err
	}
	for _, keyFile := range []string{conf.Authority.PrivKeyFile(), conf.Participant.PrivKeyFile()} {
		if err := os.Remove(keyFile); err != nil && !os.IsNotExist(err) {
			return err
		}
		logger.Info("Removed key file", "path", keyFile)
	}
	return nil
}
