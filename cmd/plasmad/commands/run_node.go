package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plasmacash/plasma/config"
	"github.com/plasmacash/plasma/libs/log"
)

// AddNodeFlags exposes some common configuration options on the command-line
// These are exposed for convenience of commands embedding a plasma node
func AddNodeFlags(cmd *cobra.Command, conf *config.Config) {
	cmd.Flags().String("mode", conf.Mode, "node mode (authority | participant)")

	// authority flags
	cmd.Flags().Duration("authority.submit-period", conf.Authority.SubmitPeriod,
		"how often the open block is sealed and its root published")
	cmd.Flags().Bool("authority.submit-empty", conf.Authority.SubmitEmpty,
		"seal blocks that carry no transaction")
	cmd.Flags().Bool("authority.unsafe-skip-spend-checks", conf.Authority.UnsafeSkipSpendChecks,
		"accept transfers without checking their predecessor (fraud rehearsal only)")

	// participant flags
	cmd.Flags().String("participant.child-chain-addr", conf.Participant.ChildChainAddress,
		"JSON-RPC address of the child chain")
	cmd.Flags().Bool("watcher.auto-challenge", conf.Watcher.AutoChallenge, "challenge fraudulent exits")
	cmd.Flags().Bool("watcher.auto-respond", conf.Watcher.AutoRespond, "respond to challenges against own exits")

	// rpc flags
	cmd.Flags().String("rpc.laddr", conf.RPC.ListenAddress, "RPC listen address. Port required")
	cmd.Flags().Bool("rpc.unsafe", conf.RPC.Unsafe, "enabled unsafe rpc methods")

	cmd.Flags().Bool("instrumentation.prometheus", conf.Instrumentation.Prometheus, "serve Prometheus metrics")

	addDBFlags(cmd, conf)
}

func addDBFlags(cmd *cobra.Command, conf *config.Config) {
	cmd.Flags().String(
		"db-backend",
		conf.DBBackend,
		"database backend: goleveldb | memdb")
	cmd.Flags().String(
		"db-dir",
		conf.DBPath,
		"database directory")
}

// NewRunNodeCmd returns the command that allows the CLI to start a node.
// It runs until its context is cancelled.
func NewRunNodeCmd(nodeProvider config.ServiceProvider, conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the plasma node",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			n, err := nodeProvider(ctx, conf, logger)
			if err != nil {
				return fmt.Errorf("failed to create node: %w", err)
			}

			if err := n.Start(ctx); err != nil {
				return fmt.Errorf("failed to start node: %w", err)
			}

			logger.Info("started node", "mode", conf.Mode)

			n.Wait()
			return nil
		},
	}

	AddNodeFlags(cmd, conf)
	return cmd
}
