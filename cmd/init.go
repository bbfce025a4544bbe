package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
)

var initForce bool

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration into the project",
		Long: `Writes the default configuration to .testagent/config.yaml in the
project root so there is something concrete to edit. Secrets are never
written: the tracker token and Slack webhook are read from the
TESTAGENT_TRACKER_TOKEN and TESTAGENT_SLACK_WEBHOOK environment
variables (or a project .env file) at startup.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
	cmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	root := flagProject
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	existing := filepath.Join(root, ".testagent", "config.yaml")
	if _, err := os.Stat(existing); err == nil && !initForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", existing)
	}

	cfg := config.GetDefaultConfig()
	cfg.Project.Name = filepath.Base(root)

	path, err := config.SaveProjectConfig(root, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit the suites section to match your project, then run 'testagent start'.")
	return nil
}
