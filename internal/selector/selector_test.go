package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/coverage"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/watcher"
)

func batchOf(paths ...string) watcher.ChangeBatch {
	b := watcher.ChangeBatch{ID: "test-batch"}
	for _, p := range paths {
		b.Records = append(b.Records, watcher.ChangeRecord{
			Path: p, Kind: watcher.ChangeModified, ObservedAt: time.Unix(0, 0),
		})
	}
	return b
}

func testDefs() []suite.Definition {
	return []suite.Definition{
		{
			Kind:            suite.KindUnit,
			MatchPatterns:   []string{"**/*.spec.*"},
			RunCommand:      "npm test",
			CoverageCommand: "npm test -- --coverage",
			Priority:        3,
			Enabled:         true,
		},
		{
			Kind:          suite.KindAPI,
			MatchPatterns: []string{"**/api/**"},
			RunCommand:    "npm run test:api",
			Priority:      1,
			Enabled:       true,
		},
	}
}

func snapshotWith(path string, covered, total int) *coverage.Snapshot {
	snap := &coverage.Snapshot{Files: map[string]coverage.FileCoverage{}}
	snap.Files[path] = coverage.FileCoverage{Lines: coverage.MetricGroup{
		Total: total, Covered: covered, Percentage: float64(covered) / float64(total) * 100,
	}}
	return snap
}

func kinds(d suite.Decision) []suite.Kind {
	var out []suite.Kind
	for _, def := range d.SuitesToRun {
		out = append(out, def.Kind)
	}
	return out
}

func TestSelect_EmptyBatch(t *testing.T) {
	d := Select(watcher.ChangeBatch{}, testDefs(), nil, 70)
	assert.Empty(t, d.SuitesToRun)
	assert.Equal(t, "no changes", d.Rationale)
	assert.Empty(t, d.CoverageGaps)
}

func TestSelect_PatternMatchWithoutGaps(t *testing.T) {
	snap := snapshotWith("src/api/users.ts", 9, 10) // 90%, well above threshold

	d := Select(batchOf("src/api/users.ts"), testDefs(), snap, 70)

	assert.Equal(t, []suite.Kind{suite.KindAPI}, kinds(d))
	assert.Contains(t, d.Rationale, "api: pattern match (src/api/users.ts)")
	assert.Empty(t, d.CoverageGaps)
}

func TestSelect_GapEscalatesCoverageSuites(t *testing.T) {
	snap := snapshotWith("src/api/users.ts", 3, 10) // 30%, below threshold

	d := Select(batchOf("src/api/users.ts"), testDefs(), snap, 70)

	// api matched by pattern, unit escalated for its coverage command;
	// descending priority puts unit (3) ahead of api (1).
	assert.Equal(t, []suite.Kind{suite.KindUnit, suite.KindAPI}, kinds(d))
	assert.Equal(t, []string{"src/api/users.ts"}, d.CoverageGaps)
	assert.Contains(t, d.Rationale, "unit: escalated")
	assert.Contains(t, d.Rationale, "api: pattern match")
}

func TestSelect_ChangedFileMissingFromSnapshotIsAGap(t *testing.T) {
	snap := snapshotWith("src/other.ts", 10, 10)

	d := Select(batchOf("src/api/users.ts"), testDefs(), snap, 70)

	assert.Equal(t, []string{"src/api/users.ts"}, d.CoverageGaps,
		"a tracked project with no entry for a changed file signals a regression")
	assert.Contains(t, kinds(d), suite.KindUnit)
}

func TestSelect_NoSnapshotMeansNoEscalation(t *testing.T) {
	d := Select(batchOf("src/api/users.ts"), testDefs(), nil, 70)

	assert.Equal(t, []suite.Kind{suite.KindAPI}, kinds(d))
	assert.Empty(t, d.CoverageGaps, "without per-file data there is nothing to escalate on")
}

func TestSelect_RemovedFilesAreNotGaps(t *testing.T) {
	snap := snapshotWith("src/api/users.ts", 10, 10)

	b := watcher.ChangeBatch{Records: []watcher.ChangeRecord{
		{Path: "src/api/old.ts", Kind: watcher.ChangeRemoved, ObservedAt: time.Unix(0, 0)},
	}}
	d := Select(b, testDefs(), snap, 70)

	assert.Empty(t, d.CoverageGaps, "deleting a file does not create a coverage gap")
	assert.Equal(t, []suite.Kind{suite.KindAPI}, kinds(d), "the deletion still pattern-matches")
}

func TestSelect_DisabledSuitesNeverRun(t *testing.T) {
	defs := testDefs()
	defs[1].Enabled = false
	snap := snapshotWith("src/api/users.ts", 1, 10)

	d := Select(batchOf("src/api/users.ts"), defs, snap, 70)

	assert.NotContains(t, kinds(d), suite.KindAPI)
	assert.Equal(t, []suite.Kind{suite.KindUnit}, kinds(d), "escalation also respects the enabled flag")
}

func TestSelect_NoMatchesStillReportsGaps(t *testing.T) {
	defs := []suite.Definition{{
		Kind:          suite.KindE2E,
		MatchPatterns: []string{"e2e/**"},
		RunCommand:    "npm run test:e2e",
		Enabled:       true,
	}}
	snap := snapshotWith("src/lonely.ts", 1, 10)

	d := Select(batchOf("src/lonely.ts"), defs, snap, 70)

	assert.Empty(t, d.SuitesToRun, "no coverage-capable suite exists to escalate")
	assert.Equal(t, []string{"src/lonely.ts"}, d.CoverageGaps)
	assert.Contains(t, d.Rationale, "no suite patterns matched")
}

func TestSelect_PriorityOrderWithDeclarationTies(t *testing.T) {
	defs := []suite.Definition{
		{Kind: suite.KindComponent, MatchPatterns: []string{"src/**"}, RunCommand: "c", Priority: 2, Enabled: true},
		{Kind: suite.KindUnit, MatchPatterns: []string{"src/**"}, RunCommand: "u", Priority: 5, Enabled: true},
		{Kind: suite.KindIntegration, MatchPatterns: []string{"src/**"}, RunCommand: "i", Priority: 2, Enabled: true},
	}

	d := Select(batchOf("src/x.ts"), defs, nil, 70)

	assert.Equal(t, []suite.Kind{suite.KindUnit, suite.KindComponent, suite.KindIntegration}, kinds(d),
		"descending priority, declaration order for ties")
}

func TestSelect_Deterministic(t *testing.T) {
	snap := snapshotWith("src/api/users.ts", 3, 10)
	b := batchOf("src/api/users.ts", "src/api/orders.ts")

	first := Select(b, testDefs(), snap, 70)
	for i := 0; i < 10; i++ {
		again := Select(b, testDefs(), snap, 70)
		require.Equal(t, first, again, "selection is a pure function of its inputs")
	}
}
