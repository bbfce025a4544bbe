package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/app"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/orchestrator"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>...",
		Short: "Run the suites relevant to the given files",
		Long: `Selects and runs test suites as if the given files had just changed,
without starting a watch session. Useful from editors and scripts that
know exactly which files they touched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	application, err := app.New(app.Options{ProjectRoot: flagProject, Debug: flagDebug})
	if err != nil {
		return err
	}
	defer application.Shutdown()

	result := application.Orchestrator().RunSuiteFor(cmd.Context(), args)
	fmt.Fprint(cmd.OutOrStdout(), orchestrator.Render(result))
	if !result.Success {
		return fmt.Errorf("suite run failed")
	}
	return nil
}
