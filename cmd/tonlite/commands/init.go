package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// InitFilesCmd writes a default configuration file into the home directory.
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		home := viper.GetString("home")
		if err := os.MkdirAll(home, 0o700); err != nil {
			return err
		}

		path := filepath.Join(home, "config.toml")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}

		if err := cfg.WriteFile(path); err != nil {
			return err
		}
		logger.Info("wrote default config", "path", path)
		return nil
	},
}
