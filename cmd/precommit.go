package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/app"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/orchestrator"
)

func newPreCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pre-commit",
		Short: "Validate the working tree before committing",
		Long: `Runs the suites relevant to the uncommitted changes and, alongside
them, checks the referenced ticket, pending review feedback, and
complexity drift. The command fails only when suites fail; advisory
findings are printed but do not block the commit.

Wire it into git with:
  echo 'testagent pre-commit' >> .git/hooks/pre-commit`,
		Args: cobra.NoArgs,
		RunE: runPreCommit,
	}
}

func runPreCommit(cmd *cobra.Command, _ []string) error {
	application, err := app.New(app.Options{ProjectRoot: flagProject, Debug: flagDebug})
	if err != nil {
		return err
	}
	defer application.Shutdown()

	result := application.Orchestrator().PreCommit(cmd.Context())
	fmt.Fprint(cmd.OutOrStdout(), orchestrator.Render(result))
	if !result.Success {
		return fmt.Errorf("pre-commit checks failed")
	}
	return nil
}
