// Package scoring estimates per-file code complexity and tracks it against
// a persisted baseline, so a commit that makes a file meaningfully harder
// to reason about gets flagged before it lands.
//
// The score is a crude cyclomatic-style heuristic over branch tokens and
// brace nesting. It is meant for trend comparison against the baseline, not
// as an absolute measure.
package scoring

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const subsystem = "Scoring"

// DefaultWarnThreshold flags files whose score suggests they need splitting.
const DefaultWarnThreshold = 10.0

// scoreEpsilon separates real score movement from float noise.
const scoreEpsilon = 1e-9

// branchTokens approximate decision points. Brace counting below handles
// nesting; string literals are not parsed, so counts inside them are noise
// the comparison tolerates.
var branchTokens = []string{
	"if ", "if(", "else if", "for ", "for(", "while ", "while(",
	"case ", "catch ", "catch(", "&& ", "|| ", "?? ",
}

// FileScore is the complexity estimate for one file.
type FileScore struct {
	Path       string  `json:"path"`
	Score      float64 `json:"score"`
	Lines      int     `json:"lines"`
	Branches   int     `json:"branches"`
	MaxNesting int     `json:"maxNesting"`
}

// Report is a scored set of files, persisted as the baseline.
type Report struct {
	GeneratedAt time.Time   `json:"generatedAt"`
	Files       []FileScore `json:"files"`
}

// Delta describes how one file's score moved relative to the baseline.
type Delta struct {
	Path     string
	Previous float64
	Current  float64
}

// Increase is positive when the file got more complex.
func (d Delta) Increase() float64 { return d.Current - d.Previous }

// Scorer scores files under a project root and persists baselines.
type Scorer struct {
	root          string
	baselinePath  string
	warnThreshold float64
}

// New builds a scorer rooted at the project directory.
func New(root string, settings config.ComplexitySettings) *Scorer {
	baseline := settings.BaselinePath
	if baseline == "" {
		baseline = filepath.Join(".testagent", "complexity.json")
	}
	threshold := settings.WarnThreshold
	if threshold <= 0 {
		threshold = DefaultWarnThreshold
	}
	return &Scorer{
		root:          root,
		baselinePath:  filepath.Join(root, baseline),
		warnThreshold: threshold,
	}
}

// Name implements capability.Capability.
func (s *Scorer) Name() string { return "complexity" }

// Kind implements capability.Capability.
func (s *Scorer) Kind() capability.Kind { return capability.KindComplexity }

// Ping verifies the project root is readable.
func (s *Scorer) Ping(_ context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("project root unavailable: %w", err)
	}
	return nil
}

// WarnThreshold exposes the configured warning threshold.
func (s *Scorer) WarnThreshold() float64 { return s.warnThreshold }

// ScoreFile scores one file. The path is project-root relative.
func (s *Scorer) ScoreFile(path string) (FileScore, error) {
	f, err := os.Open(filepath.Join(s.root, path))
	if err != nil {
		return FileScore{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	score := FileScore{Path: filepath.ToSlash(path)}
	depth, maxDepth := 0, 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "*") {
			continue
		}
		score.Lines++

		lowered := " " + strings.ToLower(line)
		for _, token := range branchTokens {
			score.Branches += strings.Count(lowered, token)
		}

		for _, r := range line {
			switch r {
			case '{':
				depth++
				if depth > maxDepth {
					maxDepth = depth
				}
			case '}':
				if depth > 0 {
					depth--
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return FileScore{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	score.MaxNesting = maxDepth
	score.Score = float64(score.Branches) + 0.5*float64(score.MaxNesting) + float64(score.Lines)/100
	return score, nil
}

// ScoreFiles scores every path it can read, skipping the rest with a
// warning, and returns the scores in input order.
func (s *Scorer) ScoreFiles(paths []string) Report {
	report := Report{GeneratedAt: time.Now()}
	for _, path := range paths {
		score, err := s.ScoreFile(path)
		if err != nil {
			logging.Warn(subsystem, "Skipping %s: %v", path, err)
			continue
		}
		report.Files = append(report.Files, score)
	}
	return report
}

// Hotspots returns the files at or above the warning threshold, highest
// score first.
func (s *Scorer) Hotspots(report Report) []FileScore {
	var out []FileScore
	for _, f := range report.Files {
		if f.Score >= s.warnThreshold {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// LoadBaseline reads the persisted baseline. A missing baseline is not an
// error; an unreadable one degrades to nil so scoring still works.
func (s *Scorer) LoadBaseline() (*Report, error) {
	data, err := os.ReadFile(s.baselinePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read complexity baseline: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode complexity baseline %s: %w", s.baselinePath, err)
	}
	return &report, nil
}

// SaveBaseline persists the report atomically so a crash mid-write cannot
// leave a truncated baseline.
func (s *Scorer) SaveBaseline(report Report) error {
	if err := os.MkdirAll(filepath.Dir(s.baselinePath), 0o755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode complexity baseline: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.baselinePath), ".complexity-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary baseline file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write complexity baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close complexity baseline: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.baselinePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace complexity baseline: %w", err)
	}

	logging.Debug(subsystem, "Saved complexity baseline with %d file(s)", len(report.Files))
	return nil
}

// Compare reports score movement against the baseline, biggest increase
// first. Files absent from the baseline count as starting from zero. A nil
// baseline compares everything against zero.
func (s *Scorer) Compare(current Report, baseline *Report) []Delta {
	previous := make(map[string]float64)
	if baseline != nil {
		for _, f := range baseline.Files {
			previous[f.Path] = f.Score
		}
	}

	var deltas []Delta
	for _, f := range current.Files {
		d := Delta{Path: f.Path, Previous: previous[f.Path], Current: f.Score}
		if d.Increase() > scoreEpsilon || d.Increase() < -scoreEpsilon {
			deltas = append(deltas, d)
		}
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Increase() != deltas[j].Increase() {
			return deltas[i].Increase() > deltas[j].Increase()
		}
		return deltas[i].Path < deltas[j].Path
	})
	return deltas
}
