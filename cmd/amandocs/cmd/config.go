package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/configs"
	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/output"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create project configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cfg.WriteYAML(cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration and data locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			out.KeyValue("User config", config.GetUserConfigPath())
			out.KeyValue("Project root", a.root)
			out.KeyValue("Corpus", a.corpusDir())
			out.KeyValue("Index", a.indexDir())
			out.KeyValue("Cache", a.cfg.CachePath(a.root))
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented .amandocs.yaml into the project root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, a.root, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing project config")
	cmd.AddCommand(initCmd)

	return cmd
}

func runConfigInit(cmd *cobra.Command, root string, force bool) error {
	out := output.New(cmd.OutOrStdout())
	path := filepath.Join(root, config.ProjectConfigNames[0])

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}
	out.Successf("Wrote %s", path)
	return nil
}
