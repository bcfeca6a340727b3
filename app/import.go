package app

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

func init() { //nolint: gochecknoinits
	importCmd.Flags().DurationVar(&importTimeout, "timeout", 30*time.Minute, "upper bound for the whole import, 0 for none")

	rootCmd.AddCommand(importCmd)
}

var (
	importTimeout time.Duration //nolint:gochecknoglobals

	importCmd = &cobra.Command{ //nolint:gochecknoglobals
		Use:     "import",
		Short:   "Synchronize every directory user below the user base DN",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDaemon()
			if err != nil {
				return err
			}

			run, errImport := d.Import(cmd.Context(), importTimeout)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if err = enc.Encode(run); err != nil {
				return err //nolint:wrapcheck
			}

			return errImport
		},
	}
)
