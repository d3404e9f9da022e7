package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonlite/tonlite/cell"
)

// BocCmd inspects a bag-of-cells file: roots, hashes and the cell tree.
var BocCmd = &cobra.Command{
	Use:   "boc [file]",
	Short: "Inspect a bag-of-cells file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		roots, err := cell.FromBOCMultiRoot(data)
		if err != nil {
			return err
		}

		fmt.Printf("%d bytes, %d root(s)\n", len(data), len(roots))
		for i, root := range roots {
			fmt.Printf("\nroot %d  hash %s\n%s", i, root.Hash().String(), root.Dump())
		}
		return nil
	},
}
