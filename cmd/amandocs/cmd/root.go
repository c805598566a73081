// Package cmd provides the CLI commands for amandocs.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/profiling"
	"github.com/Aman-CERP/amandocs/pkg/version"
)

// app is the state shared by every command of one invocation.
type app struct {
	debug      bool
	configPath string
	dir        string
	profile    profiling.Options

	root     string
	cfg      *config.Config
	cleanup  func()
	profiler *profiling.Session
}

// NewRootCmd creates the root command for the amandocs CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "amandocs",
		Short: "Hybrid search for documentation sites",
		Long: `amandocs indexes a documentation tree and answers queries with
BM25 keyword scoring fused with semantic similarity.

Keyword search works as soon as the index is built. Semantic scoring joins
once the embedding model and vectors have loaded, when the machine allows.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.teardown()
		},
	}
	cmd.SetVersionTemplate("amandocs version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to ~/.amandocs/logs/")
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Project config file (default: .amandocs.yaml)")
	cmd.PersistentFlags().StringVarP(&a.dir, "dir", "C", ".", "Project root directory")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newIndexCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newShellCmd(a))
	cmd.AddCommand(newInfoCmd(a))
	cmd.AddCommand(newDoctorCmd(a))
	cmd.AddCommand(newCacheCmd(a))
	cmd.AddCommand(newValidateCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newLogsCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any failure to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		output.New(os.Stderr).Err(err)
	}
	return err
}

// setup resolves the project root, loads configuration and installs the
// default logger.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	root, err := filepath.Abs(a.dir)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	a.root = root

	if a.configPath != "" {
		a.cfg, err = config.LoadFile(root, a.configPath)
	} else {
		a.cfg, err = config.Load(root)
	}
	if err != nil {
		return err
	}

	logCfg := a.cfg.Logging
	if a.debug {
		logCfg = logging.DebugConfig()
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.cleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("cli_started",
		slog.String("version", version.Short()),
		slog.String("root", root))

	if a.profile.Enabled() {
		a.profiler, err = profiling.Start(a.profile)
		if err != nil {
			return err
		}
	}
	return nil
}

// teardown flushes profiles and closes the log file.
func (a *app) teardown() error {
	err := a.profiler.Stop()
	a.profiler = nil
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	return err
}

// skipSetup is used by commands that need neither config nor logging.
func skipSetup(_ *cobra.Command, _ []string) error {
	return nil
}
