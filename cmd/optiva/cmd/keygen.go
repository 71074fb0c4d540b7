package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/optiva/internal/util"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a random hex key for sealing stored tokens",
	Long: `Prints a random 256-bit key. Set it as storage_key (or OPTIVA_STORAGE_KEY)
to seal the stored session with AES-256-GCM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := util.NewAESKey()
		if err != nil {
			return err
		}
		defer util.WipeBytes(key)
		fmt.Fprintln(cmd.OutOrStdout(), util.HexEncode(key))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
