// File: cmd/create.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

// defaultTokenName is used when no name is given, e.g. "a2024-03-01".
func defaultTokenName(now time.Time) string {
	return "a" + now.Format("2006-01-02")
}

func newCreateCmd(d deps) *cobra.Command {
	var project string

	createCmd := &cobra.Command{
		Use:   "create [token-name]",
		Short: "Create a new API token",
		Long: `Creates an API token scoped to a single project (--project) or to the whole
account and prints it on stdout. PyPI shows a token only once, so keep it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}

			name := defaultTokenName(time.Now())
			if len(args) == 1 {
				name = args[0]
			}
			var scope pypi.TokenScope = pypi.AllProjects{}
			if project != "" {
				scope = pypi.SingleProject{Name: project}
			}

			return withSession(cmd.Context(), cfg, d, func(ctx context.Context, s tokenSession) error {
				token, err := s.CreateToken(ctx, name, scope)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Created token:")
				fmt.Fprintln(out, token)
				return nil
			})
		},
	}

	createCmd.Flags().StringVarP(&project, "project", "p", "", "restrict the token to this project (default: all projects)")
	return createCmd
}
