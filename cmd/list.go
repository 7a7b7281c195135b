// File: cmd/list.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

// tokenView is the serialized form of a pypi.TokenListEntry.
type tokenView struct {
	Name     string     `json:"name" yaml:"name"`
	Scope    string     `json:"scope" yaml:"scope"`
	Project  string     `json:"project,omitempty" yaml:"project,omitempty"`
	Created  time.Time  `json:"created" yaml:"created"`
	LastUsed *time.Time `json:"last_used,omitempty" yaml:"last_used,omitempty"`
}

func newTokenView(e pypi.TokenListEntry) tokenView {
	v := tokenView{Name: e.Name, Scope: "user", Created: e.Created, LastUsed: e.LastUsed}
	if p, ok := e.Scope.(pypi.SingleProject); ok {
		v.Scope, v.Project = "project", p.Name
	}
	return v
}

func newListCmd(d deps) *cobra.Command {
	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the account's API tokens",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "table", "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unsupported format %q (want table, json or yaml)", format)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), cfg, d, func(ctx context.Context, s tokenSession) error {
				entries, err := s.TokenList(ctx)
				if err != nil {
					return err
				}
				return writeTokenList(cmd.OutOrStdout(), entries, format)
			})
		},
	}

	listCmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json or yaml")
	return listCmd
}

func writeTokenList(w io.Writer, entries []pypi.TokenListEntry, format string) error {
	views := make([]tokenView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newTokenView(e))
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize token list to JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return fmt.Errorf("failed to serialize token list to YAML: %w", err)
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, renderTokenTable(entries))
		return err
	}
}

func renderTokenTable(entries []pypi.TokenListEntry) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("NAME", "SCOPE", "CREATED", "LAST USED")

	for _, e := range entries {
		lastUsed := "never"
		if e.LastUsed != nil {
			lastUsed = formatTimestamp(*e.LastUsed)
		}
		t.Row(e.Name, e.Scope.String(), formatTimestamp(e.Created), lastUsed)
	}
	return t.String()
}

func formatTimestamp(ts time.Time) string {
	return ts.Local().Format("2006-01-02 15:04")
}
