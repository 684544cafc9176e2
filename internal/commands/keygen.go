package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/roomkey"
	"github.com/BioHazard786/rendezvous/internal/ui"
)

var (
	flagWords int
	flagPlain bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a memorable room key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := roomkey.GenerateN(flagWords)
		if err != nil {
			return err
		}
		if flagPlain {
			fmt.Println(key)
			return nil
		}
		fmt.Println(ui.KeyView(key, "Share it with your peer: rendezvous answer "+key))
		return nil
	},
}

func init() {
	keygenCmd.Flags().IntVarP(&flagWords, "words", "w", roomkey.DefaultWords, "Number of words in the key")
	keygenCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print only the key")
}
