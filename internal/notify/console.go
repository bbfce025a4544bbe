package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles for console notifications, adapted to light and dark terminals.
var (
	consoleInfoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#58A6FF"})
	consoleSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#2ECC71"})
	consoleWarningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F1C40F"})
	consoleErrorStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#E74C3C"})
)

// Console renders notifications as styled terminal lines.
type Console struct {
	out io.Writer
}

// NewConsole builds a console sink. A nil writer means standard output.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// Send writes the notification as one headline line plus an indented body.
func (c *Console) Send(_ context.Context, n Notification) error {
	icon, style := consoleLook(n.Level)
	if _, err := fmt.Fprintln(c.out, style.Render(icon+" "+n.Title)); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	if n.Body == "" {
		return nil
	}
	for _, line := range strings.Split(strings.TrimRight(n.Body, "\n"), "\n") {
		if _, err := fmt.Fprintln(c.out, "  "+line); err != nil {
			return fmt.Errorf("failed to write notification: %w", err)
		}
	}
	return nil
}

func consoleLook(level Level) (string, lipgloss.Style) {
	switch level {
	case LevelSuccess:
		return "✔", consoleSuccessStyle
	case LevelWarning:
		return "⚠", consoleWarningStyle
	case LevelError:
		return "❌", consoleErrorStyle
	default:
		return "ℹ", consoleInfoStyle
	}
}
