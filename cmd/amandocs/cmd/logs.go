package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"regexp"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/output"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	logFile string
}

func newLogsCmd(a *app) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View amandocs logs",
		Long: `View the amandocs log file.

By default, shows the last 50 lines of the configured log file, or of
~/.amandocs/logs/amandocs.log when none is configured. Use -f to follow
new entries as they are written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, a, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only lines matching this regular expression")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Log file path")

	return cmd
}

func runLogs(cmd *cobra.Command, a *app, opts logsOptions) error {
	path := opts.logFile
	if path == "" {
		path = a.cfg.Logging.FilePath
	}
	if path == "" {
		path = logging.DefaultLogPath()
	}

	cfg := logging.ViewerConfig{MinLevel: opts.level}
	if opts.filter != "" {
		re, err := regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid --filter: %w", err)
		}
		cfg.Pattern = re
	}

	out := output.New(cmd.OutOrStdout())
	viewer := logging.NewViewer(cfg)

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no log file at %s (run with --debug to create one)", path)
		}
		return err
	}
	for _, e := range entries {
		printLogEntry(out, e)
	}
	if !opts.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return viewer.Follow(ctx, path, func(e logging.LogEntry) { printLogEntry(out, e) })
}

func printLogEntry(out *output.Writer, e logging.LogEntry) {
	if !e.Valid {
		_, _ = fmt.Fprintln(out.Out(), e.Raw)
		return
	}
	st := out.Styles()

	level := fmt.Sprintf("%-5s", e.Level)
	switch e.Level {
	case "ERROR":
		level = st.Error.Render(level)
	case "WARN":
		level = st.Warning.Render(level)
	default:
		level = st.Dim.Render(level)
	}

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]string, len(keys))
	for i, k := range keys {
		attrs[i] = fmt.Sprintf("%s=%v", k, e.Attrs[k])
	}

	ts := ""
	if !e.Time.IsZero() {
		ts = e.Time.Local().Format("15:04:05.000") + " "
	}
	_, _ = fmt.Fprintf(out.Out(), "%s%s %s %s\n", st.Dim.Render(ts), level, e.Msg, st.Dim.Render(strings.Join(attrs, " ")))
}
