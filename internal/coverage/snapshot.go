package coverage

import "sort"

// MetricGroup is one of the four aggregate coverage counters. Percentage is
// always derived from Covered/Total; an empty group (Total == 0) counts as
// fully covered so suites that report nothing for a metric never show up as
// spurious gaps.
type MetricGroup struct {
	Total      int     `json:"total"`
	Covered    int     `json:"covered"`
	Percentage float64 `json:"percentage"`
}

func pct(covered, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(covered) / float64(total) * 100
}

func group(covered, total int) MetricGroup {
	if covered > total {
		covered = total
	}
	return MetricGroup{Total: total, Covered: covered, Percentage: pct(covered, total)}
}

// FileCoverage holds the per-file detail tracked inside a snapshot.
type FileCoverage struct {
	Lines          MetricGroup `json:"lines"`
	Statements     MetricGroup `json:"statements"`
	Functions      MetricGroup `json:"functions"`
	Branches       MetricGroup `json:"branches"`
	UncoveredLines []int       `json:"uncoveredLines,omitempty"`
}

// LinePercentage is the per-file line coverage used for gap detection.
func (f FileCoverage) LinePercentage() float64 {
	return f.Lines.Percentage
}

// Snapshot is the merged record of coverage across all suites that reported
// it. It is the only durable piece of state the agent keeps.
type Snapshot struct {
	Lines      MetricGroup             `json:"lines"`
	Statements MetricGroup             `json:"statements"`
	Functions  MetricGroup             `json:"functions"`
	Branches   MetricGroup             `json:"branches"`
	Files      map[string]FileCoverage `json:"files,omitempty"`
}

// HasData reports whether the snapshot carries any coverage information.
func (s *Snapshot) HasData() bool {
	if s == nil {
		return false
	}
	return len(s.Files) > 0 || s.Lines.Total > 0 || s.Statements.Total > 0 ||
		s.Functions.Total > 0 || s.Branches.Total > 0
}

// FilePaths returns the tracked file paths in sorted order.
func (s *Snapshot) FilePaths() []string {
	if s == nil {
		return nil
	}
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// recomputeGroups rebuilds the four aggregate groups from the per-file set.
// Totals are recomputed, never summed across snapshots, so replacing a file's
// data can lower an aggregate.
func (s *Snapshot) recomputeGroups() {
	var lines, stmts, funcs, branches [2]int // covered, total
	for _, f := range s.Files {
		lines[0] += f.Lines.Covered
		lines[1] += f.Lines.Total
		stmts[0] += f.Statements.Covered
		stmts[1] += f.Statements.Total
		funcs[0] += f.Functions.Covered
		funcs[1] += f.Functions.Total
		branches[0] += f.Branches.Covered
		branches[1] += f.Branches.Total
	}
	s.Lines = group(lines[0], lines[1])
	s.Statements = group(stmts[0], stmts[1])
	s.Functions = group(funcs[0], funcs[1])
	s.Branches = group(branches[0], branches[1])
}

// Merge folds incoming into existing and returns the merged snapshot. New
// data for a file replaces old data for that file; aggregate groups are then
// recomputed across the full merged file set. Either argument may be nil.
// The inputs are not mutated.
func Merge(existing, incoming *Snapshot) *Snapshot {
	if existing == nil && incoming == nil {
		return nil
	}

	merged := &Snapshot{Files: make(map[string]FileCoverage)}
	if existing != nil {
		for p, f := range existing.Files {
			merged.Files[p] = f
		}
	}
	if incoming != nil {
		for p, f := range incoming.Files {
			merged.Files[p] = f
		}
	}

	if len(merged.Files) > 0 {
		merged.recomputeGroups()
		return merged
	}

	// Neither side carried per-file detail. Keep the most recent aggregate
	// numbers: a summary-only run replaces the previous whole-run totals.
	merged.Files = nil
	src := existing
	if incoming != nil && incoming.HasData() {
		src = incoming
	}
	if src != nil {
		merged.Lines = src.Lines
		merged.Statements = src.Statements
		merged.Functions = src.Functions
		merged.Branches = src.Branches
	}
	return merged
}
