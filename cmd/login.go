// File: cmd/login.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check that the credentials are accepted by PyPI",
		Long: `Logs into PyPI, asking for credentials as needed, and stores working
credentials in the system keyring unless --no-keyring is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), cfg, d, func(ctx context.Context, s tokenSession) error {
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", s.Credentials().Username)
				return nil
			})
		},
	}
}
