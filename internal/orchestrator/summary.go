package orchestrator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/environments"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/review"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/scoring"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true)
	stepOKStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#2ECC71"})
	stepWarnStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F1C40F"})
	stepFailStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#E74C3C"})
)

// summarize reduces a finished workflow to one deterministic sentence.
// The same outcomes always produce the same summary, so step names are
// reported sorted.
func summarize(result WorkflowResult, criticalFailed []string, total int) string {
	if !result.Success {
		sorted := append([]string(nil), criticalFailed...)
		sort.Strings(sorted)
		return fmt.Sprintf("failed: critical step(s) %s did not succeed", strings.Join(sorted, ", "))
	}
	if len(result.Errors) == 0 {
		return fmt.Sprintf("all %d step(s) succeeded", total)
	}

	names := make([]string, 0, len(result.Errors))
	for name := range result.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("completed with %d of %d step(s) degraded: %s", len(names), total, strings.Join(names, ", "))
}

// Render formats a workflow result for the terminal: one line per step in
// sorted order, then the summary line colored by outcome.
func Render(result WorkflowResult) string {
	var b strings.Builder

	head := fmt.Sprintf("%s (%s)", result.Workflow, result.Duration.Round(time.Millisecond))
	b.WriteString(summaryTitleStyle.Render(head))
	b.WriteString("\n")

	for _, name := range stepNames(result) {
		errMsg, failed := result.Errors[name]
		detail := ""
		if v, ok := result.Results[name]; ok {
			detail = formatValue(v)
		}

		switch {
		case failed:
			b.WriteString("  " + stepFailStyle.Render("✗") + " " + name + ": " + errMsg + "\n")
			if detail != "" {
				writeDetail(&b, detail)
			}
		case detail == "":
			b.WriteString("  " + stepOKStyle.Render("✓") + " " + name + "\n")
		case strings.Contains(detail, "\n"):
			b.WriteString("  " + stepOKStyle.Render("✓") + " " + name + ":\n")
			writeDetail(&b, detail)
		default:
			b.WriteString("  " + stepOKStyle.Render("✓") + " " + name + ": " + detail + "\n")
		}
	}

	style := stepOKStyle
	switch {
	case !result.Success:
		style = stepFailStyle
	case len(result.Errors) > 0:
		style = stepWarnStyle
	}
	b.WriteString(style.Render(result.Summary))
	b.WriteString("\n")
	return b.String()
}

// stepNames returns every step that recorded a value or an error, sorted.
func stepNames(result WorkflowResult) []string {
	seen := make(map[string]bool, len(result.Results))
	var names []string
	for name := range result.Results {
		seen[name] = true
		names = append(names, name)
	}
	for name := range result.Errors {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func writeDetail(b *strings.Builder, detail string) {
	for _, line := range strings.Split(strings.TrimRight(detail, "\n"), "\n") {
		b.WriteString("      " + line + "\n")
	}
}

// formatValue turns a recorded step value into display text. Unknown
// types fall back to their default formatting.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+val[k])
		}
		return strings.Join(parts, "; ")
	case review.Signals:
		return fmt.Sprintf("%d action item(s), %d requested change(s), %d concern(s), %d suggestion(s)",
			len(val.ActionItems), len(val.RequestedChanges), len(val.Concerns), len(val.Suggestions))
	case []scoring.Delta:
		parts := make([]string, 0, len(val))
		for _, d := range val {
			parts = append(parts, fmt.Sprintf("%s %+.1f (now %.1f)", d.Path, d.Increase(), d.Current))
		}
		return strings.Join(parts, "; ")
	case []environments.Health:
		parts := make([]string, 0, len(val))
		for _, h := range val {
			if h.Healthy {
				parts = append(parts, fmt.Sprintf("%s up (%d, %s)", h.Name, h.StatusCode, h.Latency.Round(time.Millisecond)))
				continue
			}
			parts = append(parts, fmt.Sprintf("%s DOWN (%s)", h.Name, environmentDetail(h)))
		}
		return strings.Join(parts, "; ")
	case cycleOutcome:
		if len(val.Results) == 0 {
			return val.Decision.Rationale
		}
		return val.Decision.Rationale + "\n" + renderSuiteTable(val.Results)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// renderSuiteTable formats suite results as an aligned table.
func renderSuiteTable(results []suite.Result) string {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"Suite", "Status", "Duration", "Coverage"})
	for _, r := range results {
		status := "passed"
		switch {
		case r.Cancelled:
			status = "cancelled"
		case !r.Succeeded:
			status = "failed"
		}
		cov := "-"
		if r.Coverage != nil && r.Coverage.HasData() {
			cov = fmt.Sprintf("%.1f%%", r.Coverage.Lines.Percentage)
		}
		w.AppendRow(table.Row{r.SuiteKind.Display(), status, r.Duration.Round(time.Millisecond), cov})
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Coverage", Align: text.AlignRight},
	})
	w.SetStyle(table.StyleLight)
	return w.Render()
}
