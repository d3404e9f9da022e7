package main

import (
	"os"

	"github.com/tonlite/tonlite/cmd/tonlite/commands"
)

func main() {
	rootCmd := commands.RootCmd
	rootCmd.AddCommand(
		commands.AddrCmd,
		commands.BocCmd,
		commands.InitFilesCmd,
		commands.VersionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}
