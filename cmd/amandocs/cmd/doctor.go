package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/preflight"
)

type doctorOptions struct {
	verbose      bool
	jsonOutput   bool
	skipEmbedder bool
}

func newDoctorCmd(a *app) *cobra.Command {
	var opts doctorOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run diagnostics to ensure amandocs can index and search.

Checks:
  - Disk space and write permissions for the index directory
  - File descriptor limits
  - Memory available for semantic search
  - Corpus directory and document parsing
  - Index artifacts
  - Embedding cache
  - Embedding model load

Memory and embedder problems are warnings: search still works keyword-only.`,
		Example: `  # Run diagnostics
  amandocs doctor

  # JSON output for scripting
  amandocs doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDoctor(ctx, cmd, a, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.skipEmbedder, "skip-embedder", false, "Skip loading the embedding model")

	return cmd
}

// doctorReport is the JSON output of doctor.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func runDoctor(ctx context.Context, cmd *cobra.Command, a *app, opts doctorOptions) error {
	checkerOpts := []preflight.Option{
		preflight.WithVerbose(opts.verbose),
		preflight.WithLoadTimeout(a.cfg.Loader.Timeout),
	}
	if !opts.skipEmbedder && !a.cfg.Capability.KeywordOnly {
		checkerOpts = append(checkerOpts, preflight.WithModel(func() (*embed.Model, error) {
			return a.newModel(false)
		}))
	}
	checker := preflight.New(a.preflightTarget(), checkerOpts...)

	results := checker.RunAll(ctx)

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(doctorReport{Status: checker.SummaryStatus(results), Checks: results}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(output.New(cmd.OutOrStdout()), results)
	}

	if checker.HasCriticalFailures(results) {
		return &doctorError{message: "system check failed"}
	}
	return nil
}

// doctorError is returned when a required check fails.
type doctorError struct {
	message string
}

func (e *doctorError) Error() string {
	return e.message
}
