package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Shared flags available to every subcommand that assembles an agent.
var (
	flagProject string
	flagDebug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "testagent",
	Short: "Watch a project and run the right tests on every change",
	Long: `testagent watches your project for file changes, picks the test suites
relevant to what changed, runs them, and folds the coverage results back
into its picture of the project. Around that loop it checks git state,
ticket readiness, pending review feedback, complexity drift, and deployed
environment health, and reports through the console, Slack, or an IDE
bridge.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid configuration, failed suites)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "testagent version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "Project root (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newPreCommitCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCommitMessageCmd())
	rootCmd.AddCommand(newComplexityCmd())
	rootCmd.AddCommand(newTestNotificationsCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
