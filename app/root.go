// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/logger"
)

const (
	envPrefix     = "LDAPSSO"
	keyConfigPath = "config_path"
)

var (
	cfg config.Config //nolint:gochecknoglobals

	rootCmd = &cobra.Command{ //nolint:gochecknoglobals
		Use:   "ldapsso",
		Short: "ldapsso authenticates users against LDAP and keeps local accounts in sync",
		Long: `ldapsso authenticates users against an LDAP directory and synchronizes
each successful login into local user and group tables, including group
memberships, admin flags and soft deletion.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().String("config", "etc/", "directory holding main.toml")

	if err := viper.BindPFlag(keyConfigPath, rootCmd.PersistentFlags().Lookup("config")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
}

// loadConfig reads the configuration and initializes the logger.
func loadConfig(_ *cobra.Command, _ []string) error {
	var err error

	if cfg, err = config.ReadConfig(configPath()); err != nil {
		return err
	}

	return logger.Init(cfg.Log)
}

// configPath returns the --config flag, overridden by LDAPSSO_CONFIG_PATH.
func configPath() string {
	path := viper.GetString(keyConfigPath)
	if path != "" && path[len(path)-1] != '/' {
		path += "/"
	}

	return path
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
