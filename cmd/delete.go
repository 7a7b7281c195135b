// File: cmd/delete.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pypi-token-client/internal/observability"
	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

func newDeleteCmd(d deps) *cobra.Command {
	var missingOK bool

	deleteCmd := &cobra.Command{
		Use:   "delete <token-name>",
		Short: "Delete an API token by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			name := args[0]

			return withSession(cmd.Context(), cfg, d, func(ctx context.Context, s tokenSession) error {
				fmt.Fprintf(cmd.OutOrStdout(), "deleting token '%s'\n", name)
				err := s.DeleteToken(ctx, name)
				if missingOK && errors.Is(err, pypi.ErrTokenNotFound) {
					observability.GetLogger().Info("Token does not exist, nothing to delete.", zap.String("token", name))
					return nil
				}
				return err
			})
		},
	}

	deleteCmd.Flags().BoolVar(&missingOK, "missing-ok", false, "succeed when no token with this name exists")
	return deleteCmd
}
