package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/clauselens/clauselens/internal/application/analysis"
	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/structuring"
)

// NewAnalyzeCmd creates the analyze command, which runs the structuring
// pipeline locally without an API server.  Model-backed classification is
// unavailable offline, so risk scoring falls back to the keyword heuristics.
func NewAnalyzeCmd(opts *RootOptions) *cobra.Command {
	var (
		file       string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Structure a contract file locally",
		Long: "Read a plain-text contract, build its section/clause hierarchy, classify\n" +
			"clause categories and risk, and print the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read contract: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			engine := structuring.NewEngine(structuring.Options{Logger: log})
			doc, err := engine.StructureDocument(ctx, string(raw), contract.DocumentMetadata{
				Filename:  filepath.Base(file),
				SizeBytes: int64(len(raw)),
			})
			if err != nil {
				return err
			}
			risk := analysis.BuildRiskAssessment(doc)

			out := cmd.OutOrStdout()
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			if opts.JSONOutput || outputFile != "" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"structured": doc,
					"risk":       risk,
				})
			}

			printAnalysisText(cmd, doc, risk)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "contract file to analyze")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "write JSON result to a file instead of stdout")
	cmd.MarkFlagRequired("file")

	return cmd
}

func printAnalysisText(cmd *cobra.Command, doc *contract.StructuredDocument, risk *contract.RiskAssessment) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Contract: %s\n", doc.Metadata.Filename)
	fmt.Fprintf(out, "Sections: %d  Clauses: %d\n", len(doc.Sections), len(doc.Clauses))
	if risk != nil {
		fmt.Fprintf(out, "Risk: %s (score %.2f, %d high / %d medium of %d clauses)\n",
			risk.Level, risk.Score, risk.HighRiskCount, risk.MediumCount, risk.TotalClauses)
	}
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		rows = append(rows, []string{
			s.ID,
			strconv.Itoa(s.Level),
			s.Title,
			string(s.SemanticGroup),
			strconv.Itoa(len(s.Clauses)),
		})
	}
	fmt.Fprint(out, FormatTable([]string{"ID", "LEVEL", "TITLE", "GROUP", "CLAUSES"}, rows))

	if risk != nil && len(risk.Factors) > 0 {
		fmt.Fprintln(out, "\nRisk factors:")
		for _, f := range risk.Factors {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}
	if risk != nil && len(risk.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations:")
		for i, r := range risk.Recommendations {
			fmt.Fprintf(out, "  %d. %s\n", i+1, r)
		}
	}
}
