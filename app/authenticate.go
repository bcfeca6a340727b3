package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldapsso/ldapsso/internal/db/models"
)

func init() { //nolint: gochecknoinits
	authenticateCmd.Flags().StringVarP(&password, "password", "p", "", "password, read from stdin when empty")

	rootCmd.AddCommand(authenticateCmd)
}

// cliOutcome is printed by the authenticate command.
type cliOutcome struct {
	Success     bool           `json:"success"`
	PassThrough bool           `json:"passThrough,omitempty"`
	User        map[string]any `json:"user,omitempty"`
	Error       string         `json:"error,omitempty"`
	Diagnostic  string         `json:"diagnostic,omitempty"`
}

var (
	password string //nolint:gochecknoglobals

	authenticateCmd = &cobra.Command{ //nolint:gochecknoglobals
		Use:     "authenticate <username>",
		Short:   "Authenticate one user against the directory and synchronize it",
		Args:    cobra.ExactArgs(1),
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}

				password = strings.TrimRight(line, "\r\n")
			}

			d, err := newDaemon()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Webserver.RequestTimeout)*time.Second)
			defer cancel()

			outcome, errAuth := d.Authenticator().Authenticate(ctx, args[0], password)

			out := cliOutcome{
				Success:     errAuth == nil,
				PassThrough: outcome.PassThrough,
				Diagnostic:  outcome.Diagnostic,
			}

			if errAuth != nil {
				out.Error = errAuth.Error()
			}

			if outcome.User != nil {
				out.User = outcome.User.Fields
				delete(out.User, models.ColumnPassword)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if err = enc.Encode(out); err != nil {
				return err //nolint:wrapcheck
			}

			return errAuth
		},
	}
)
