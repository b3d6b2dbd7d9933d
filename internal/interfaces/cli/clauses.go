package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clauselens/clauselens/pkg/client"
)

// NewClausesCmd groups the clause search commands.
func NewClausesCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clauses",
		Short: "Search clauses across analyzed contracts",
	}
	cmd.AddCommand(newClausesSearchCmd(opts))
	return cmd
}

func newClausesSearchCmd(opts *RootOptions) *cobra.Command {
	var (
		category   string
		riskLevel  string
		contractID string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text clause search",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withClient(opts, func(ctx context.Context, sdk *client.Client) error {
			hits, err := sdk.SearchClauses(ctx, &client.ClauseSearchRequest{
				Query:      args[0],
				Category:   category,
				RiskLevel:  riskLevel,
				ContractID: contractID,
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return printJSON(c, hits)
			}

			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{
					h.ContractID, h.ClauseID, h.Category, h.RiskLevel,
					fmt.Sprintf("%.2f", h.Score), truncateText(h.Text, 60),
				})
			}
			fmt.Fprint(c.OutOrStdout(),
				FormatTable([]string{"CONTRACT", "CLAUSE", "CATEGORY", "RISK", "SCORE", "TEXT"}, rows))
			return nil
		})(c, args)
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by clause category")
	cmd.Flags().StringVar(&riskLevel, "risk-level", "", "filter by risk level")
	cmd.Flags().StringVar(&contractID, "contract-id", "", "restrict to one contract")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
