package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plasmacash/plasma/config"
	tmos "github.com/plasmacash/plasma/libs/os"
	"github.com/plasmacash/plasma/privval"
)

// MakeShowAddressCommand returns the command printing the address of the
// authority key, or of the participant key with --participant.
func MakeShowAddressCommand(conf *config.Config) *cobra.Command {
	var participant bool
	cmd := &cobra.Command{
		Use:     "show-address",
		Aliases: []string{"show_address"},
		Short:   "Show the address of this node's key",
		RunE: func(cmd *cobra.Command, args []string) error {
			keyFile := conf.Authority.PrivKeyFile()
			if participant {
				keyFile = conf.Participant.PrivKeyFile()
			}
			if !tmos.FileExists(keyFile) {
				return fmt.Errorf("key file %q does not exist", keyFile)
			}
			pv, err := privval.LoadFilePV(keyFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pv.Address())
			return nil
		},
	}
	cmd.Flags().BoolVar(&participant, "participant", false, "show the participant key instead of the authority key")
	return cmd
}
