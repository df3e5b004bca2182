package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plasmacash/plasma/privval"
)

// MakeGenKeyCommand returns the command printing a fresh key in the key
// file format. Nothing is written to disk.
func MakeGenKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "gen-key",
		Aliases: []string{"gen_key"},
		Short:   "Generate a new secp256k1 key",
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := json.MarshalIndent(privval.GenFilePV("").Key(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
}
