package suite

import (
	"fmt"
	"time"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/coverage"
	"github.com/bmatcuk/doublestar/v4"
)

// Kind identifies one of the known suite categories. The set is closed:
// configuration referencing any other value is rejected at load time, so the
// rest of the system never has to defend against unknown kinds.
type Kind string

const (
	KindUnit        Kind = "unit"
	KindIntegration Kind = "integration"
	KindE2E         Kind = "e2e"
	KindAPI         Kind = "api"
	KindComponent   Kind = "component"
	KindPerformance Kind = "performance"
)

// kindSpec carries the per-kind strategy: how the kind presents itself in
// summaries, which coverage formats its runners are expected to emit, and any
// environment the executor must inject to keep the runner non-interactive.
// Strategies are selected once through this table instead of string switches
// scattered across the codebase.
type kindSpec struct {
	Display         string
	CoverageFormats []coverage.Format
	ExtraEnv        []string
}

var kindSpecs = map[Kind]kindSpec{
	KindUnit: {
		Display:         "Unit",
		CoverageFormats: []coverage.Format{coverage.FormatSummaryText, coverage.FormatLCOV},
		ExtraEnv:        []string{"CI=true"},
	},
	KindIntegration: {
		Display:         "Integration",
		CoverageFormats: []coverage.Format{coverage.FormatSummaryText, coverage.FormatLCOV},
		ExtraEnv:        []string{"CI=true"},
	},
	KindE2E: {
		Display:         "End-to-end",
		CoverageFormats: nil, // browser runners report no line coverage
		ExtraEnv:        []string{"CI=true", "HEADLESS=true"},
	},
	KindAPI: {
		Display:         "API",
		CoverageFormats: []coverage.Format{coverage.FormatSummaryText, coverage.FormatLCOV},
		ExtraEnv:        []string{"CI=true"},
	},
	KindComponent: {
		Display:         "Component",
		CoverageFormats: []coverage.Format{coverage.FormatSummaryText, coverage.FormatLCOV},
		ExtraEnv:        []string{"CI=true"},
	},
	KindPerformance: {
		Display:         "Performance",
		CoverageFormats: nil,
		ExtraEnv:        []string{"CI=true"},
	},
}

// KnownKinds returns the closed set of suite kinds in stable order.
func KnownKinds() []Kind {
	return []Kind{KindUnit, KindIntegration, KindE2E, KindAPI, KindComponent, KindPerformance}
}

// Valid reports whether k names a known suite kind.
func (k Kind) Valid() bool {
	_, ok := kindSpecs[k]
	return ok
}

// Display returns the human-readable name for the kind, falling back to the
// raw value for kinds that slipped past validation.
func (k Kind) Display() string {
	if spec, ok := kindSpecs[k]; ok {
		return spec.Display
	}
	return string(k)
}

// CoverageFormats returns the coverage formats the kind's runners may emit.
// An empty slice means the kind never produces parseable coverage.
func (k Kind) CoverageFormats() []coverage.Format {
	return kindSpecs[k].CoverageFormats
}

// ExtraEnv returns environment entries the executor injects when running
// suites of this kind.
func (k Kind) ExtraEnv() []string {
	return kindSpecs[k].ExtraEnv
}

// Definition is one configured, independently invocable test suite. Loaded
// once from configuration and treated as immutable afterwards.
type Definition struct {
	Kind            Kind          `yaml:"kind"`
	MatchPatterns   []string      `yaml:"patterns"`
	RunCommand      string        `yaml:"command"`
	CoverageCommand string        `yaml:"coverageCommand,omitempty"`
	Priority        int           `yaml:"priority,omitempty"` // Higher values are scheduled first
	Enabled         bool          `yaml:"enabled"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
}

// HasCoverage reports whether the suite declares a dedicated coverage command.
func (d Definition) HasCoverage() bool {
	return d.CoverageCommand != ""
}

// ValidateDefinitions checks a loaded suite list for configuration errors:
// unknown kinds, duplicate kinds, missing run commands, and malformed glob
// patterns. Duplicate kinds are an error rather than silently running twice.
func ValidateDefinitions(defs []Definition) error {
	seen := make(map[Kind]bool, len(defs))
	for i, d := range defs {
		if !d.Kind.Valid() {
			return fmt.Errorf("suite %d: unknown kind %q", i, d.Kind)
		}
		if seen[d.Kind] {
			return fmt.Errorf("duplicate suite definition for kind %q", d.Kind)
		}
		seen[d.Kind] = true
		if d.RunCommand == "" {
			return fmt.Errorf("suite %q: command is required", d.Kind)
		}
		if len(d.MatchPatterns) == 0 {
			return fmt.Errorf("suite %q: at least one pattern is required", d.Kind)
		}
		for _, p := range d.MatchPatterns {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("suite %q: invalid pattern %q", d.Kind, p)
			}
		}
	}
	return nil
}

// Decision is the outcome of suite selection for one change batch. It is
// produced fresh per batch and never persisted.
type Decision struct {
	SuitesToRun  []Definition
	Rationale    string
	CoverageGaps []string
}

// Empty reports whether the decision selects no suites.
func (d Decision) Empty() bool {
	return len(d.SuitesToRun) == 0
}

// Result is the normalized outcome of one suite execution. Non-zero exits,
// spawn failures and cancellation all produce the same shape; callers branch
// on Succeeded plus Cancelled only.
type Result struct {
	SuiteKind       Kind
	Succeeded       bool
	Cancelled       bool
	Duration        time.Duration
	RawOutput       string
	TriggeringPaths []string
	Coverage        *coverage.Snapshot
}
