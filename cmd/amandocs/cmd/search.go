package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/loader"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	version     string
	category    string
	format      string
	keywordOnly bool
	noWait      bool
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documentation",
		Long: `Search the indexed documentation.

Scores combine BM25 keyword relevance (40%) with semantic similarity (60%)
when the embedding model is available, and fall back to keywords alone
otherwise. Titles containing the query and exact phrase matches rank higher.

Examples:
  amandocs search "install on windows"
  amandocs search "rate limits" --version v2 --limit 5
  amandocs search "webhooks" --category guides --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSearch(ctx, cmd, a, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&opts.version, "version", "", "Only documents of this version (plus unversioned ones)")
	cmd.Flags().StringVar(&opts.category, "category", "", "Only documents in this category")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.keywordOnly, "keyword-only", false, "Use keyword search only")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Do not wait for semantic resources to load")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, a *app, query string, opts searchOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())

	s, err := openSearch(ctx, a, opts.keywordOnly)
	if err != nil {
		return err
	}
	defer s.Close()

	if !opts.noWait && !opts.keywordOnly {
		snap := s.wait(ctx)
		if snap.State == loader.StateFailed && format == output.FormatText {
			out.Warningf("Semantic search unavailable: %s", snap.Reason)
		}
	}

	results, err := s.engine.Search(ctx, query, search.Options{
		Limit:       opts.limit,
		Version:     opts.version,
		Category:    opts.category,
		KeywordOnly: opts.keywordOnly,
	})
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.String("query", query), slog.Int("results", len(results)))

	return out.Results(query, s.mode(results, opts.keywordOnly), results, format)
}
