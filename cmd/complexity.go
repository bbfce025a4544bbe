package cmd

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/scoring"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

var (
	complexitySaveBaseline bool
	complexityCompare      bool
)

func newComplexityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complexity [file...]",
		Short: "Score file complexity and track drift against a baseline",
		Long: `Scores source files on branching density, nesting depth, and length.
Without arguments every watched source file is scored. Use
--save-baseline to record the current scores and --compare to show how
files have drifted since the recorded baseline.`,
		RunE: runComplexity,
	}
	cmd.Flags().BoolVar(&complexitySaveBaseline, "save-baseline", false, "Record the scores as the new baseline")
	cmd.Flags().BoolVar(&complexityCompare, "compare", false, "Compare scores against the recorded baseline")
	return cmd
}

func runComplexity(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if flagDebug {
		level = logging.LevelDebug
	}
	logging.Initialize(level, nil)

	cfg, err := config.LoadConfig(flagProject)
	if err != nil {
		return err
	}
	scorer := scoring.New(cfg.Project.Root, cfg.Complexity)

	files := args
	if len(files) == 0 {
		files, err = collectSourceFiles(cfg.Project.Root, cfg.Watcher)
		if err != nil {
			return err
		}
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No source files to score.")
		return nil
	}

	report := scorer.ScoreFiles(files)

	if complexityCompare {
		baseline, err := scorer.LoadBaseline()
		if err != nil {
			return fmt.Errorf("reading baseline: %w", err)
		}
		if baseline == nil {
			return fmt.Errorf("no baseline recorded yet, run with --save-baseline first")
		}
		printDeltaTable(cmd, scorer.Compare(report, baseline))
	} else {
		printScoreTable(cmd, report, scorer.WarnThreshold())
	}

	if complexitySaveBaseline {
		if err := scorer.SaveBaseline(report); err != nil {
			return fmt.Errorf("saving baseline: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded baseline for %d file(s).\n", len(report.Files))
	}
	return nil
}

func printScoreTable(cmd *cobra.Command, report scoring.Report, warnThreshold float64) {
	sorted := append([]scoring.FileScore(nil), report.Files...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Path < sorted[j].Path
	})

	w := table.NewWriter()
	w.SetOutputMirror(cmd.OutOrStdout())
	w.AppendHeader(table.Row{"File", "Score", "Lines", "Branches", "Nesting"})
	hotspots := 0
	for _, f := range sorted {
		marker := ""
		if f.Score >= warnThreshold {
			marker = " !"
			hotspots++
		}
		w.AppendRow(table.Row{f.Path, fmt.Sprintf("%.1f%s", f.Score, marker), f.Lines, f.Branches, f.MaxNesting})
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Score", Align: text.AlignRight},
		{Name: "Lines", Align: text.AlignRight},
		{Name: "Branches", Align: text.AlignRight},
		{Name: "Nesting", Align: text.AlignRight},
	})
	w.SetStyle(table.StyleLight)
	w.Render()

	if hotspots > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) at or above the %.0f warning threshold.\n", hotspots, warnThreshold)
	}
}

func printDeltaTable(cmd *cobra.Command, deltas []scoring.Delta) {
	if len(deltas) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No complexity changes against the baseline.")
		return
	}

	w := table.NewWriter()
	w.SetOutputMirror(cmd.OutOrStdout())
	w.AppendHeader(table.Row{"File", "Baseline", "Current", "Change"})
	for _, d := range deltas {
		w.AppendRow(table.Row{
			d.Path,
			fmt.Sprintf("%.1f", d.Previous),
			fmt.Sprintf("%.1f", d.Current),
			fmt.Sprintf("%+.1f", d.Increase()),
		})
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Baseline", Align: text.AlignRight},
		{Name: "Current", Align: text.AlignRight},
		{Name: "Change", Align: text.AlignRight},
	})
	w.SetStyle(table.StyleLight)
	w.Render()
}

// collectSourceFiles walks the watched subtrees and returns root-relative
// paths with watched extensions, honoring the ignore patterns.
func collectSourceFiles(root string, watcherCfg config.WatcherSettings) ([]string, error) {
	subtrees := watcherCfg.Paths
	if len(subtrees) == 0 {
		subtrees = []string{"."}
	}

	seen := make(map[string]bool)
	var files []string
	for _, sub := range subtrees {
		base := filepath.Join(root, sub)
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			for _, pattern := range watcherCfg.IgnorePatterns {
				if ok, _ := doublestar.Match(pattern, rel); ok {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
			}
			if d.IsDir() {
				return nil
			}
			ext := filepath.Ext(rel)
			for _, e := range watcherCfg.Extensions {
				if strings.EqualFold(ext, e) && !seen[rel] {
					seen[rel] = true
					files = append(files, rel)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
