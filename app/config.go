package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldapsso/ldapsso/internal/config"
)

func init() { //nolint: gochecknoinits
	configDumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "dump as JSON instead of TOML")

	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	dumpJSON bool //nolint:gochecknoglobals

	configCmd = &cobra.Command{ //nolint:gochecknoglobals
		Use:   "config",
		Short: "Inspect the configuration",
	}

	configDumpCmd = &cobra.Command{ //nolint:gochecknoglobals
		Use:   "dump",
		Short: "Print the effective configuration including defaults and overrides",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			var err error

			cfg, err = config.ReadConfig(configPath())

			return err //nolint:wrapcheck
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			dump := config.DumpConfig
			if dumpJSON {
				dump = config.DumpConfigJSON
			}

			masked := cfg
			masked.DB.Password = mask(masked.DB.Password)
			masked.LDAP.BindPassword = mask(masked.LDAP.BindPassword)

			out, err := dump(&masked)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)

			return err //nolint:wrapcheck
		},
	}
)

func mask(secret string) string {
	if secret == "" {
		return ""
	}

	return "********"
}
