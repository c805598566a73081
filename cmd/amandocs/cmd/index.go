package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/corpus"
	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/store"
	"github.com/Aman-CERP/amandocs/internal/watcher"
)

type indexOptions struct {
	watch       bool
	keywordOnly bool
}

func newIndexCmd(a *app) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the search index for the documentation tree",
		Long: `Build the search index for the documentation tree.

Documents are read from the corpus root, tokenized for BM25 and embedded
with the configured model. Embeddings are cached by content hash and model
version, so rebuilding an unchanged corpus embeds nothing.

If the embedding model cannot be loaded the index is still written and
search runs keyword-only.

Use --watch to rebuild whenever a document changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, a, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Rebuild when documents change")
	cmd.Flags().BoolVar(&opts.keywordOnly, "keyword-only", false, "Skip embeddings and build a keyword-only index")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, a *app, opts indexOptions) error {
	out := output.New(cmd.OutOrStdout())

	cache, err := a.openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	var model *embed.Model
	if !opts.keywordOnly && !a.cfg.Capability.KeywordOnly {
		model, err = a.newModel(false)
		if err != nil {
			return err
		}
		defer func() { _ = model.Close() }()
	}

	if err := buildOnce(ctx, out, a, model, cache); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	return watchAndRebuild(ctx, out, a, model, cache)
}

// buildOnce loads the corpus and writes a fresh artifact.
func buildOnce(ctx context.Context, out *output.Writer, a *app, model *embed.Model, cache store.EmbeddingCache) error {
	docs, err := corpus.LoadDir(ctx, a.corpusDir(), a.cfg.CorpusOptions())
	if err != nil {
		return err
	}
	out.Statusf("", "Indexing %d documents from %s", len(docs), a.corpusDir())

	progress := out.NewProgress("Embedding")
	builder := index.NewBuilder(model, cache,
		index.WithWorkers(a.cfg.Index.Workers),
		index.WithExcerptChars(a.cfg.Index.ExcerptChars),
		index.WithProgress(progress.Update))

	report, err := builder.BuildAndWrite(ctx, a.indexDir(), docs)
	progress.Finish()
	if err != nil {
		return err
	}

	slog.Info("index_built",
		slog.Int("documents", report.Documents),
		slog.Int("cache_hits", report.CacheHits),
		slog.Int("embedded", report.Embedded),
		slog.String("model_version", report.ModelVersion),
		slog.Duration("duration", report.Duration))

	out.Success(report.String())
	if n := report.KeywordOnly(); n > 0 && report.ModelVersion != "" {
		out.Warningf("%d document(s) have no embedding and match by keyword only", n)
	}
	if report.ModelVersion == "" {
		out.Warning("Index is keyword-only; semantic scoring is unavailable")
	}
	return nil
}

// watchAndRebuild rebuilds the index after every settled batch of changes
// until ctx ends.
func watchAndRebuild(ctx context.Context, out *output.Writer, a *app, model *embed.Model, cache store.EmbeddingCache) error {
	w, err := watcher.New(watcher.Options{
		DebounceWindow: a.cfg.Watch.Debounce,
		Corpus:         a.cfg.CorpusOptions(),
	})
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- w.Start(ctx, a.corpusDir()) }()
	out.Statusf("", "Watching %s for changes (Ctrl+C to stop)", a.corpusDir())

	runErr := watcher.Run(ctx, w, func(ctx context.Context, batch []watcher.FileEvent) error {
		for _, ev := range batch {
			slog.Debug("watch_event", slog.String("path", ev.Path), slog.String("op", ev.Operation.String()))
		}
		out.Statusf("", "%d change(s) detected, rebuilding", len(batch))
		return buildOnce(ctx, out, a, model, cache)
	})
	_ = w.Stop()
	startErr := <-errc

	for _, err := range []error{runErr, startErr} {
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("watch: %w", err)
		}
	}
	return nil
}
