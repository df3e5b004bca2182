package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plasmacash/plasma/version"
)

const versionCommandName = "version"

// MakeVersionCommand returns the command printing the software and
// protocol versions.
func MakeVersionCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   versionCommandName,
		Short: "Show version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return nil
			}
			bz, err := json.MarshalIndent(version.Current(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show protocol and RPC versions")
	return cmd
}
