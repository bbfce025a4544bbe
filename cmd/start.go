package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/app"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/orchestrator"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

// startCursorPort forces the IDE bridge on at the given port, overriding
// the bridge section of the configuration.
var startCursorPort int

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start watching the project and running suites on change",
		Long: `Starts the agent for a development session: loads configuration, starts
the filesystem watcher and any background collaborators (IDE bridge,
environment monitors), verifies the configured integrations, and then
keeps running test cycles for every change batch until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runStart,
	}
	cmd.Flags().IntVar(&startCursorPort, "cursor-port", 0, "Serve IDE bridge events on this port (overrides config)")
	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	application, err := app.New(app.Options{
		ProjectRoot: flagProject,
		Debug:       flagDebug,
		BridgePort:  startCursorPort,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	result := application.Orchestrator().DeveloperSetup(ctx)
	fmt.Fprint(cmd.OutOrStdout(), orchestrator.Render(result))
	if !result.Success {
		application.Shutdown()
		return fmt.Errorf("setup failed: %s", result.Summary)
	}

	logging.Info("CLI", "Agent running. Press Ctrl+C to stop.")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cancel()
	application.Shutdown()
	return nil
}
