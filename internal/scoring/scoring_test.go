package scoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
)

const retrySource = `export function retry(times: number, fn: () => boolean): boolean {
  for (let i = 0; i < times; i++) {
    if (fn()) {
      return true;
    }
  }
  return false;
}
`

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	return New(t.TempDir(), config.ComplexitySettings{})
}

func writeSource(t *testing.T, scorer *Scorer, path, content string) {
	t.Helper()
	full := filepath.Join(scorer.root, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestScoreFile(t *testing.T) {
	scorer := newTestScorer(t)
	writeSource(t, scorer, "src/retry.ts", retrySource)

	score, err := scorer.ScoreFile("src/retry.ts")
	require.NoError(t, err)

	assert.Equal(t, "src/retry.ts", score.Path)
	assert.Equal(t, 8, score.Lines)
	assert.Equal(t, 2, score.Branches)
	assert.Equal(t, 3, score.MaxNesting)
	assert.InDelta(t, 3.58, score.Score, 1e-9)
}

func TestScoreFile_SkipsCommentsAndBlanks(t *testing.T) {
	scorer := newTestScorer(t)
	writeSource(t, scorer, "src/doc.ts", `// A helper.

/**
 * Long description.
 */
export const answer = 42;
`)

	score, err := scorer.ScoreFile("src/doc.ts")
	require.NoError(t, err)
	// Only the /** opener and the const line count as code.
	assert.Equal(t, 2, score.Lines)
	assert.Equal(t, 0, score.Branches)
}

func TestScoreFile_MissingFile(t *testing.T) {
	scorer := newTestScorer(t)
	_, err := scorer.ScoreFile("src/ghost.ts")
	require.Error(t, err)
}

func TestScoreFiles_SkipsUnreadable(t *testing.T) {
	scorer := newTestScorer(t)
	writeSource(t, scorer, "src/a.ts", retrySource)

	report := scorer.ScoreFiles([]string{"src/a.ts", "src/missing.ts"})
	require.Len(t, report.Files, 1)
	assert.Equal(t, "src/a.ts", report.Files[0].Path)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestHotspots(t *testing.T) {
	scorer := newTestScorer(t)
	report := Report{Files: []FileScore{
		{Path: "src/ok.ts", Score: 5},
		{Path: "src/big.ts", Score: 12},
		{Path: "src/huge.ts", Score: 15},
	}}

	hotspots := scorer.Hotspots(report)
	require.Len(t, hotspots, 2)
	assert.Equal(t, "src/huge.ts", hotspots[0].Path)
	assert.Equal(t, "src/big.ts", hotspots[1].Path)
}

func TestBaseline_RoundTrip(t *testing.T) {
	scorer := newTestScorer(t)

	missing, err := scorer.LoadBaseline()
	require.NoError(t, err)
	assert.Nil(t, missing)

	report := Report{Files: []FileScore{{Path: "src/a.ts", Score: 4.2, Lines: 30, Branches: 3, MaxNesting: 2}}}
	require.NoError(t, scorer.SaveBaseline(report))

	loaded, err := scorer.LoadBaseline()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, report.Files, loaded.Files)
}

func TestBaseline_CorruptFileErrors(t *testing.T) {
	scorer := newTestScorer(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(scorer.baselinePath), 0o755))
	require.NoError(t, os.WriteFile(scorer.baselinePath, []byte("{nope"), 0o644))

	_, err := scorer.LoadBaseline()
	require.Error(t, err)
}

func TestCompare(t *testing.T) {
	scorer := newTestScorer(t)
	baseline := &Report{Files: []FileScore{
		{Path: "src/a.ts", Score: 5},
		{Path: "src/b.ts", Score: 3},
		{Path: "src/gone.ts", Score: 4},
	}}
	current := Report{Files: []FileScore{
		{Path: "src/a.ts", Score: 5},
		{Path: "src/b.ts", Score: 9},
		{Path: "src/new.ts", Score: 2},
	}}

	deltas := scorer.Compare(current, baseline)
	require.Len(t, deltas, 2)
	assert.Equal(t, "src/b.ts", deltas[0].Path)
	assert.InDelta(t, 6, deltas[0].Increase(), 1e-9)
	assert.Equal(t, "src/new.ts", deltas[1].Path)
	assert.InDelta(t, 2, deltas[1].Increase(), 1e-9)
}

func TestCompare_NilBaselineScoresFromZero(t *testing.T) {
	scorer := newTestScorer(t)
	current := Report{Files: []FileScore{{Path: "src/a.ts", Score: 3}}}

	deltas := scorer.Compare(current, nil)
	require.Len(t, deltas, 1)
	assert.InDelta(t, 3, deltas[0].Increase(), 1e-9)
}

func TestScorer_Capability(t *testing.T) {
	scorer := newTestScorer(t)
	assert.Equal(t, "complexity", scorer.Name())
	assert.Equal(t, capability.KindComplexity, scorer.Kind())
	assert.NoError(t, scorer.Ping(context.Background()))

	gone := New(filepath.Join(t.TempDir(), "missing"), config.ComplexitySettings{})
	assert.Error(t, gone.Ping(context.Background()))
}
