package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tonlite/tonlite/config"
	"github.com/tonlite/tonlite/libs/log"
)

var (
	cfg    = config.DefaultConfig()
	logger = log.MustNewDefaultLogger(log.LogFormatPlain, log.LogLevelInfo, os.Stderr)
)

// RootCmd is the root command. Every subcommand runs with the
// configuration and logger it prepares.
var RootCmd = &cobra.Command{
	Use:   "tonlite",
	Short: "Trustless TON lite-client tooling",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		viper.SetEnvPrefix("TONLITE")
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()

		if path := configFilePath(); path != "" {
			if loaded, err := config.LoadFile(path); err == nil {
				cfg = loaded
			}
		}

		var err error
		logger, err = log.NewDefaultLogger(cfg.LogFormat, viper.GetString("log-level"), os.Stderr)
		return err
	},
}

func init() {
	RootCmd.PersistentFlags().String("home", defaultHome(), "directory for config files")
	RootCmd.PersistentFlags().String("log-level", log.LogLevelInfo, "log level")
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tonlite"
	}
	return filepath.Join(home, ".tonlite")
}

func configFilePath() string {
	home := viper.GetString("home")
	if home == "" {
		return ""
	}
	path := filepath.Join(home, "config.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
