package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonlite/tonlite/version"
)

// VersionCmd prints the semantic version of the lite-client.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.TONLiteVersion)
	},
}
