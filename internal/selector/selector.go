// Package selector decides which test suites a change batch warrants.
// Selection is a pure function of its inputs: the same batch, suite
// definitions and coverage snapshot always produce the same decision
// with the same rationale.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/coverage"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/watcher"
)

// reason records why a suite entered the candidate set.
type reason struct {
	patternMatch string // First changed path that matched, when selected by pattern
	escalated    bool   // Selected because coverage gaps exist
}

// Select maps a change batch to the suites that should run.
//
// Pattern candidates are the enabled definitions whose glob patterns
// match any changed path. When the changed files carry coverage gaps,
// every enabled suite with a coverage command is escalated into the
// set as well. The result is ordered by descending priority with
// declaration order breaking ties.
func Select(batch watcher.ChangeBatch, defs []suite.Definition, snap *coverage.Snapshot, perFileThreshold float64) suite.Decision {
	if len(batch.Records) == 0 {
		return suite.Decision{Rationale: "no changes"}
	}

	paths := batch.Paths()
	gaps := gapsForChanges(batch, snap, perFileThreshold)

	reasons := make(map[suite.Kind]*reason)
	var order []int // Indices into defs, declaration order

	for i, def := range defs {
		if !def.Enabled {
			continue
		}
		if matched, path := matchesAny(def.MatchPatterns, paths); matched {
			reasons[def.Kind] = &reason{patternMatch: path}
			order = append(order, i)
		}
	}

	if len(gaps) > 0 {
		for i, def := range defs {
			if !def.Enabled || !def.HasCoverage() {
				continue
			}
			if r, ok := reasons[def.Kind]; ok {
				r.escalated = true
				continue
			}
			reasons[def.Kind] = &reason{escalated: true}
			order = append(order, i)
		}
	}

	if len(order) == 0 {
		return suite.Decision{
			Rationale:    "no suite patterns matched the changed files",
			CoverageGaps: gaps,
		}
	}

	// Descending priority; order already carries declaration order, so a
	// stable sort preserves it for ties.
	sort.SliceStable(order, func(a, b int) bool {
		return defs[order[a]].Priority > defs[order[b]].Priority
	})

	selected := make([]suite.Definition, 0, len(order))
	lines := make([]string, 0, len(order))
	for _, i := range order {
		def := defs[i]
		selected = append(selected, def)
		lines = append(lines, describe(def.Kind, reasons[def.Kind], len(gaps)))
	}

	return suite.Decision{
		SuitesToRun:  selected,
		Rationale:    strings.Join(lines, "; "),
		CoverageGaps: gaps,
	}
}

// gapsForChanges restricts gap analysis to the batch's non-removed
// paths. Without per-file data there is nothing to measure, so an
// absent or aggregate-only snapshot yields no gaps rather than
// flagging every file on a fresh checkout.
func gapsForChanges(batch watcher.ChangeBatch, snap *coverage.Snapshot, perFileThreshold float64) []string {
	if snap == nil || len(snap.Files) == 0 {
		return nil
	}
	removed := make(map[string]bool)
	for _, rec := range batch.Records {
		if rec.Kind == watcher.ChangeRemoved {
			removed[rec.Path] = true
		} else {
			// A later add or modify supersedes an earlier remove.
			delete(removed, rec.Path)
		}
	}
	var candidates []string
	for _, p := range batch.Paths() {
		if !removed[p] {
			candidates = append(candidates, p)
		}
	}
	return coverage.Gaps(snap, perFileThreshold, candidates)
}

func matchesAny(patterns []string, paths []string) (bool, string) {
	for _, path := range paths {
		for _, pattern := range patterns {
			if ok, err := doublestar.Match(pattern, path); err == nil && ok {
				return true, path
			}
		}
	}
	return false, ""
}

func describe(kind suite.Kind, r *reason, gapCount int) string {
	switch {
	case r.patternMatch != "" && r.escalated:
		return fmt.Sprintf("%s: pattern match (%s), reinforced by %d coverage gap(s)", kind, r.patternMatch, gapCount)
	case r.patternMatch != "":
		return fmt.Sprintf("%s: pattern match (%s)", kind, r.patternMatch)
	default:
		return fmt.Sprintf("%s: escalated to close %d coverage gap(s)", kind, gapCount)
	}
}
