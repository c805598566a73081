package cmd

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/artifact"
	"github.com/Aman-CERP/amandocs/internal/output"
)

// indexInfo summarizes a built index.
type indexInfo struct {
	Dir           string         `json:"dir"`
	FormatVersion int            `json:"format_version"`
	Digest        string         `json:"digest"`
	ModelVersion  string         `json:"model_version,omitempty"`
	Documents     int            `json:"documents"`
	Embedded      int            `json:"embedded"`
	Terms         int            `json:"terms"`
	Versions      map[string]int `json:"versions"`
	Categories    map[string]int `json:"categories"`
	LastUpdated   time.Time      `json:"last_updated"`
}

func newInfoCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show statistics about the built index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ix, err := artifact.ReadIndex(a.indexDir())
			if err != nil {
				return err
			}
			info := summarizeIndex(a.indexDir(), ix)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printIndexInfo(output.New(cmd.OutOrStdout()), info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func summarizeIndex(dir string, ix *artifact.Index) indexInfo {
	info := indexInfo{
		Dir:           dir,
		FormatVersion: ix.FormatVersion,
		Digest:        ix.Digest,
		ModelVersion:  ix.ModelVersion,
		Documents:     len(ix.Docs),
		Embedded:      ix.EmbeddedCount(),
		Terms:         len(ix.Postings),
		Versions:      make(map[string]int),
		Categories:    make(map[string]int),
	}
	for _, d := range ix.Docs {
		if d.Version != "" {
			info.Versions[d.Version]++
		}
		if d.Category != "" {
			info.Categories[d.Category]++
		}
		if d.UpdatedAt.After(info.LastUpdated) {
			info.LastUpdated = d.UpdatedAt
		}
	}
	return info
}

func printIndexInfo(out *output.Writer, info indexInfo) {
	out.Header("Index")
	out.KeyValue("Directory", info.Dir)
	out.KeyValue("Format", info.FormatVersion)
	out.KeyValue("Digest", shortDigest(info.Digest))
	out.KeyValue("Documents", info.Documents)
	out.KeyValue("Terms", info.Terms)
	if info.ModelVersion != "" {
		out.KeyValue("Model", info.ModelVersion)
		out.KeyValue("Embedded", info.Embedded)
	} else {
		out.KeyValue("Model", "(keyword-only)")
	}
	if !info.LastUpdated.IsZero() {
		out.KeyValue("Last updated", info.LastUpdated.Format(time.DateOnly))
	}
	printCounts(out, "Versions", info.Versions)
	printCounts(out, "Categories", info.Categories)
}

func printCounts(out *output.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out.Newline()
	out.Header(title)
	for _, k := range keys {
		out.KeyValue(k, counts[k])
	}
}

func shortDigest(d string) string {
	if len(d) > 16 {
		return d[:16]
	}
	return d
}
