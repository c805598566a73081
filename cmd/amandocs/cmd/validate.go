package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/validation"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		jsonOutput  bool
		keywordOnly bool
	)

	cmd := &cobra.Command{
		Use:   "validate <queries.yaml>",
		Short: "Check search relevance against expected results",
		Long: `Run the queries in a YAML file and check that expected documents
rank within the top results.

Tier 1 queries and negative queries must pass; tier 2 queries are
reported only. The command fails when a required query fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			queries, err := validation.LoadQueries(args[0])
			if err != nil {
				return err
			}
			s, err := openSearch(ctx, a, keywordOnly)
			if err != nil {
				return err
			}
			defer s.Close()
			if !keywordOnly {
				s.wait(ctx)
			}

			res := validation.NewValidator(s.engine, queries.TopK).RunAll(ctx, queries)
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				printValidation(output.New(cmd.OutOrStdout()), res)
			}
			if !res.Passed() {
				return fmt.Errorf("relevance validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&keywordOnly, "keyword-only", false, "Validate keyword search only")
	return cmd
}

func printValidation(out *output.Writer, res *validation.Result) {
	out.Header("Relevance validation")
	for _, r := range res.Results {
		label := r.Spec.ID
		if r.Spec.Name != "" {
			label += " " + r.Spec.Name
		}
		switch {
		case r.Error != "":
			out.Errorf("%s: %s", label, r.Error)
		case r.Passed && r.MatchedAt >= 0:
			out.Successf("%s (rank %d)", label, r.MatchedAt+1)
		case r.Passed:
			out.Success(label)
		default:
			out.Warningf("%s: got [%s]", label, strings.Join(r.TopResults, ", "))
		}
	}
	out.Newline()
	out.KeyValue("Tier 1", fmt.Sprintf("%d/%d (MRR %.2f)", res.Tier1.Pass, res.Tier1.Total, res.Tier1.MRR))
	out.KeyValue("Tier 2", fmt.Sprintf("%d/%d (MRR %.2f)", res.Tier2.Pass, res.Tier2.Total, res.Tier2.MRR))
	out.KeyValue("Negative", fmt.Sprintf("%d/%d", res.Negative.Pass, res.Negative.Total))
}
