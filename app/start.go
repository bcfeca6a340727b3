package app

import (
	"github.com/spf13/cobra"

	"github.com/ldapsso/ldapsso/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode bool //nolint:gochecknoglobals

	startCmd = &cobra.Command{ //nolint:gochecknoglobals
		Use:     "start",
		Short:   "Start the authentication web service",
		PreRunE: loadConfig,
		RunE: func(_ *cobra.Command, _ []string) error {
			if devMode {
				cfg.DevMode = true
			}

			d, err := newDaemon()
			if err != nil {
				return err
			}

			return d.Start()
		},
	}
)

func newDaemon() (*daemon.Daemon, error) {
	db, err := daemon.Open(&cfg)
	if err != nil {
		return nil, err
	}

	return daemon.New(&cfg, db, nil)
}
