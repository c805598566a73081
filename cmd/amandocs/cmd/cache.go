package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/artifact"
	"github.com/Aman-CERP/amandocs/internal/output"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the embedding cache",
	}
	cmd.AddCommand(newCacheStatsCmd(a))
	cmd.AddCommand(newCachePruneCmd(a))
	return cmd
}

func newCacheStatsCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cached embeddings per model version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := a.openCache()
			if err != nil {
				return err
			}
			defer func() { _ = cache.Close() }()

			stats, err := cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"backend":    stats.Backend,
					"path":       stats.Path,
					"total":      stats.Total(),
					"by_version": stats.ByVersion,
				})
			}

			out := output.New(cmd.OutOrStdout())
			out.Header("Embedding cache")
			out.KeyValue("Backend", stats.Backend)
			if stats.Path != "" {
				out.KeyValue("Path", stats.Path)
			}
			out.KeyValue("Entries", stats.Total())
			for _, v := range stats.Versions() {
				out.KeyValue(v, stats.ByVersion[v])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCachePruneCmd(a *app) *cobra.Command {
	var keep string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete embeddings of other model versions",
		Long: `Delete cached embeddings whose model version differs from the one
kept. By default the model version of the current index is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep == "" {
				ix, err := artifact.ReadIndex(a.indexDir())
				if err != nil {
					return fmt.Errorf("no --keep given and the index cannot be read: %w", err)
				}
				if ix.ModelVersion == "" {
					return fmt.Errorf("index is keyword-only; pass --keep <model@dims>")
				}
				keep = ix.ModelVersion
			}

			cache, err := a.openCache()
			if err != nil {
				return err
			}
			defer func() { _ = cache.Close() }()

			removed, err := cache.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Removed %d embedding(s); kept %s", removed, keep)
			return nil
		},
	}

	cmd.Flags().StringVar(&keep, "keep", "", "Model version to keep (default: the index's)")
	return cmd
}
