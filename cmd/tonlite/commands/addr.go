package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonlite/tonlite/types"
)

// AddrCmd parses an account address and prints both of its forms.
var AddrCmd = &cobra.Command{
	Use:   "addr [address]",
	Short: "Parse an account address and print its raw and packed forms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := types.ParseAddress(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("raw:        %s\n", addr.String())
		fmt.Printf("packed:     %s\n", addr.Pack())
		fmt.Printf("bounceable: %v\n", addr.Bounceable)
		fmt.Printf("testnet:    %v\n", addr.Testnet)
		return nil
	},
}
