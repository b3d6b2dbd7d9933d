package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/clauselens/clauselens/pkg/client"
)

// NewContractsCmd groups the server-side contract commands.
func NewContractsCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Manage contracts on a ClauseLens server",
	}

	cmd.AddCommand(
		newContractsUploadCmd(opts),
		newContractsGetCmd(opts),
		newContractsStatusCmd(opts),
		newContractsListCmd(opts),
		newContractsAnalyzeCmd(opts),
		newContractsDeleteCmd(opts),
	)
	return cmd
}

func withClient(opts *RootOptions, run func(ctx context.Context, c *client.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newSDKClient(opts)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
		defer cancel()
		return run(ctx, c)
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newContractsUploadCmd(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a contract file for analysis",
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		raw, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read contract: %w", err)
		}
		return withClient(opts, func(ctx context.Context, sdk *client.Client) error {
			summary, err := sdk.UploadContract(ctx, &client.UploadContractRequest{
				Filename: filepath.Base(file),
				Text:     string(raw),
			})
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return printJSON(c, summary)
			}
			fmt.Fprintf(c.OutOrStdout(), "Uploaded %s as %s (status: %s)\n",
				summary.Filename, summary.ID, summary.Status)
			return nil
		})(c, args)
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "contract file to upload")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newContractsAnalyzeCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <contract-id>",
		Short: "Run the structuring pipeline on an uploaded contract",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withClient(opts, func(ctx context.Context, sdk *client.Client) error {
			result, err := sdk.AnalyzeContract(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return printJSON(c, result)
			}
			fmt.Fprintf(c.OutOrStdout(), "Analyzed %s: %d clauses, risk %s\n",
				result.Contract.ID, result.Contract.ClauseCount, result.Contract.RiskLevel)
			return nil
		})(c, args)
	}
	return cmd
}

func newContractsGetCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <contract-id>",
		Short: "Fetch a contract's full analysis",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withClient(opts, func(ctx context.Context, sdk *client.Client) error {
			result, err := sdk.GetContract(ctx, args[0])
			if err != nil {
				return err
			}
			// The structured tree is only useful as JSON.
			return printJSON(c, result)
		})(c, args)
	}
	return cmd
}

func newContractsStatusCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <contract-id>",
		Short: "Show a contract's processing state",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withClient(opts, func(ctx context.Context, sdk *client.Client) error {
			status, err := sdk.GetContractStatus(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return printJSON(c, status)
			}
			fmt.Fprintf(c.OutOrStdout(), "%s: %s", status.ID, status.Status)
			if status.FailureReason != "" {
				fmt.Fprintf(c.OutOrStdout(), " (%s)", status.FailureReason)
			}
			fmt.Fprintln(c.OutOrStdout())
			return nil
		})(c, args)
	}
	return cmd
}

func newContractsListCmd(opts *RootOptions) *cobra.Command {
	var (
		status    string
		riskLevel string
		page      int
		pageSize  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts",
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withClient(opts, func(ctx context.Context, sdk *client.Client) error {
			list, err := sdk.ListContracts(ctx, &client.ListContractsRequest{
				Status:    status,
				RiskLevel: riskLevel,
				Page:      page,
				PageSize:  pageSize,
			})
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return printJSON(c, list.Contracts)
			}

			rows := make([][]string, 0, len(list.Contracts))
			for _, s := range list.Contracts {
				rows = append(rows, []string{
					s.ID, s.Filename, s.Status, s.RiskLevel, strconv.Itoa(s.ClauseCount),
				})
			}
			fmt.Fprint(c.OutOrStdout(),
				FormatTable([]string{"ID", "FILENAME", "STATUS", "RISK", "CLAUSES"}, rows))
			fmt.Fprintf(c.OutOrStdout(), "\nPage %d of %d total contracts\n",
				list.Pagination.Page, list.Pagination.Total)
			return nil
		})(c, args)
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&riskLevel, "risk-level", "", "filter by risk level")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	return cmd
}

func newContractsDeleteCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <contract-id>",
		Short: "Delete a contract and its derived data",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withClient(opts, func(ctx context.Context, sdk *client.Client) error {
			if err := sdk.DeleteContract(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})(c, args)
	}
	return cmd
}
