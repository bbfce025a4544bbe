package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/git"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/tracker"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

var commitMessageCopy bool

func newCommitMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-message",
		Short: "Suggest a commit message for the uncommitted changes",
		Long: `Builds a conventional-commit style message from the working tree. When
the issue tracker integration is enabled and the branch references a
ticket, the ticket key is appended as a reference. The suggestion is
deterministic for a given working tree state.`,
		Args: cobra.NoArgs,
		RunE: runCommitMessage,
	}
	cmd.Flags().BoolVar(&commitMessageCopy, "copy", false, "Copy the suggestion to the clipboard")
	return cmd
}

func runCommitMessage(cmd *cobra.Command, _ []string) error {
	level := logging.LevelInfo
	if flagDebug {
		level = logging.LevelDebug
	}
	logging.Initialize(level, nil)

	cfg, err := config.LoadConfig(flagProject)
	if err != nil {
		return err
	}

	gitClient := git.New(cfg.Project.Root, cfg.Git.RemoteName, cfg.Git.BaseBranch)

	ticket := ""
	if cfg.Tracker.Enabled {
		trackerClient, err := tracker.New(cfg.Tracker, gitClient)
		if err != nil {
			return err
		}
		key, err := trackerClient.TicketForCurrentBranch(cmd.Context())
		if err != nil {
			logging.Warn("CLI", "Could not resolve a ticket from the branch: %v", err)
		} else {
			ticket = key
		}
	}

	message, err := gitClient.SuggestCommitMessage(cmd.Context(), ticket)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), message)

	if commitMessageCopy {
		if err := clipboard.WriteAll(message); err != nil {
			logging.Warn("CLI", "Failed to copy the suggestion: %v", err)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Copied to clipboard.")
		}
	}
	return nil
}
