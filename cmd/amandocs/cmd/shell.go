package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/loader"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/search"
)

const shellHelp = `Type a query to search. Commands:
  :state            show the semantic loading state
  :stats            show query statistics
  :version <v>      filter by version (empty clears)
  :category <c>     filter by category (empty clears)
  :limit <n>        set the result limit
  :quit             exit`

func newShellCmd(a *app) *cobra.Command {
	var keywordOnly bool

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run queries interactively while semantic resources load",
		Long: `Open the index and read queries line by line.

Keyword results are available immediately. Semantic scoring joins as soon
as the embedding model and vectors finish loading in the background; the
shell reports the switch before the next result set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runShell(ctx, cmd, a, keywordOnly)
		},
	}

	cmd.Flags().BoolVar(&keywordOnly, "keyword-only", false, "Use keyword search only")
	return cmd
}

type shell struct {
	out       *output.Writer
	session   *searchSession
	opts      search.Options
	lastState loader.State
}

func runShell(ctx context.Context, cmd *cobra.Command, a *app, keywordOnly bool) error {
	out := output.New(cmd.OutOrStdout())
	s, err := openSearch(ctx, a, keywordOnly)
	if err != nil {
		return err
	}
	defer s.Close()

	sh := &shell{out: out, session: s, opts: search.Options{KeywordOnly: keywordOnly}}
	out.Statusf("", "%d documents loaded. Type :help for commands.", len(s.index.Docs))
	sh.reportState()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		_, _ = fmt.Fprint(out.Out(), "> ")
		select {
		case <-ctx.Done():
			out.Newline()
			return nil
		case line, ok := <-lines:
			if !ok {
				out.Newline()
				return <-scanErr
			}
			quit, err := sh.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				out.Err(err)
			}
			if quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the shell should exit.
func (sh *shell) handle(ctx context.Context, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if strings.HasPrefix(line, ":") {
		return sh.command(line)
	}

	sh.reportState()
	results, err := sh.session.engine.Search(ctx, line, sh.opts)
	if err != nil {
		if errors.Is(err, search.ErrQuerySuperseded) {
			return false, nil
		}
		return false, err
	}
	return false, sh.out.Results(line, sh.session.mode(results, sh.opts.KeywordOnly), results, output.FormatText)
}

func (sh *shell) command(line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":q", ":quit", ":exit":
		return true, nil
	case ":help", ":h":
		_, _ = fmt.Fprintln(sh.out.Out(), shellHelp)
	case ":state":
		snap := sh.session.loader.Snapshot()
		sh.out.KeyValue("State", string(snap.State))
		if snap.Reason != "" {
			sh.out.KeyValue("Reason", snap.Reason)
		}
		sh.out.KeyValue("Capability", sh.session.decision.Reason)
		sh.out.KeyValue("Session", sh.session.session.ID())
	case ":stats":
		printStats(sh.out, sh.session.stats.Snapshot())
	case ":version":
		sh.opts.Version = arg
		sh.out.KeyValue("Version filter", displayFilter(arg))
	case ":category":
		sh.opts.Category = arg
		sh.out.KeyValue("Category filter", displayFilter(arg))
	case ":limit":
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return false, fmt.Errorf("limit must be a positive integer, got %q", arg)
		}
		sh.opts.Limit = n
		sh.out.KeyValue("Limit", n)
	default:
		return false, fmt.Errorf("unknown command %q (try :help)", name)
	}
	return false, nil
}

// reportState prints loader transitions since the last report.
func (sh *shell) reportState() {
	snap := sh.session.loader.Snapshot()
	if snap.State == sh.lastState {
		return
	}
	sh.lastState = snap.State
	switch snap.State {
	case loader.StateLoading:
		sh.out.Status("…", "Loading semantic resources; answering by keyword meanwhile")
	case loader.StateReady:
		sh.out.Success("Semantic search ready")
	case loader.StateFailed:
		sh.out.Warningf("Semantic search unavailable: %s", snap.Reason)
	case loader.StateIdle:
		if snap.Reason != "" {
			sh.out.Warningf("Keyword-only: %s", snap.Reason)
		}
	}
}

func printStats(out *output.Writer, s search.StatsSnapshot) {
	out.KeyValue("Queries", s.Queries)
	out.KeyValue("Zero results", s.ZeroResults)
	out.KeyValue("Hybrid", s.Modes[search.ModeHybrid])
	out.KeyValue("Keyword", s.Modes[search.ModeKeyword])
	for _, b := range []search.LatencyBucket{search.BucketP10, search.BucketP50, search.BucketP100, search.BucketP500, search.BucketP1000} {
		out.KeyValue("Latency "+string(b), s.LatencyDistribution[b])
	}
	terms := make([]string, 0, len(s.TopTerms))
	for i, t := range s.TopTerms {
		if i == 5 {
			break
		}
		terms = append(terms, fmt.Sprintf("%s (%d)", t.Term, t.Count))
	}
	if len(terms) > 0 {
		out.KeyValue("Top terms", strings.Join(terms, ", "))
	}
}

func displayFilter(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}
