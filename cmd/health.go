package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/app"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/orchestrator"
)

var healthStrict bool

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report project and collaborator health",
		Long: `Reports the project's standing in one pass: branch divergence,
coverage against the configured thresholds, collaborator reachability,
and deployed environment health. Purely observational; nothing is
started or changed.`,
		Args: cobra.NoArgs,
		RunE: runHealth,
	}
	cmd.Flags().BoolVar(&healthStrict, "strict", false, "Exit non-zero when any check reports a problem")
	return cmd
}

func runHealth(cmd *cobra.Command, _ []string) error {
	application, err := app.New(app.Options{ProjectRoot: flagProject, Debug: flagDebug})
	if err != nil {
		return err
	}
	defer application.Shutdown()

	result := application.Orchestrator().HealthCheck(cmd.Context())
	fmt.Fprint(cmd.OutOrStdout(), orchestrator.Render(result))
	if healthStrict && len(result.Errors) > 0 {
		return fmt.Errorf("%d health check(s) reported problems", len(result.Errors))
	}
	return nil
}
