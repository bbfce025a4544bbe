package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/notify"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

func newTestNotificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-notifications",
		Short: "Send a sample notification at every level",
		Long: `Sends one sample notification per level (info, success, warning, error)
through the configured channels. External channels such as Slack drop
anything below their configured minimum level, so seeing fewer messages
there than on the console is expected.`,
		RunE: runTestNotifications,
	}
}

func runTestNotifications(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if flagDebug {
		level = logging.LevelDebug
	}
	logging.Initialize(level, nil)

	cfg, err := config.LoadConfig(flagProject)
	if err != nil {
		return err
	}
	notifier, err := notify.FromConfig(cfg.Notifications)
	if err != nil {
		return err
	}

	samples := []notify.Notification{
		{Level: notify.LevelInfo, Title: "Sample info notification", Body: "testagent delivers routine updates at this level."},
		{Level: notify.LevelSuccess, Title: "Sample success notification", Body: "Passing test runs are announced at this level."},
		{Level: notify.LevelWarning, Title: "Sample warning notification", Body: "Degraded checks and stale branches are announced at this level."},
		{Level: notify.LevelError, Title: "Sample error notification", Body: "Failing test runs are announced at this level."},
	}

	failed := 0
	for _, n := range samples {
		if err := notifier.Send(cmd.Context(), n); err != nil {
			failed++
			logging.Warn("CLI", "Sending %s notification: %v", n.Level, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d notification(s) failed to send", failed, len(samples))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d notification(s) through %s.\n", len(samples), describeChannels(cfg.Notifications))
	return nil
}

func describeChannels(settings config.NotificationSettings) string {
	switch {
	case settings.Console && settings.SlackWebhook != "":
		return "the console and Slack"
	case settings.SlackWebhook != "":
		return "Slack"
	default:
		return "the console"
	}
}
