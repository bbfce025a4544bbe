package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileCov(covered, total int) FileCoverage {
	return FileCoverage{
		Lines:      group(covered, total),
		Statements: group(covered, total),
	}
}

func TestPercentage_EmptyGroupIsFullyCovered(t *testing.T) {
	g := group(0, 0)
	assert.Equal(t, 100.0, g.Percentage, "nothing to cover means fully covered")

	g = group(0, 10)
	assert.Equal(t, 0.0, g.Percentage)

	g = group(5, 10)
	assert.Equal(t, 50.0, g.Percentage)
}

func TestMerge_NilInputs(t *testing.T) {
	assert.Nil(t, Merge(nil, nil))

	snap := &Snapshot{Files: map[string]FileCoverage{"a.ts": fileCov(1, 2)}}
	snap.recomputeGroups()

	merged := Merge(nil, snap)
	require.NotNil(t, merged)
	assert.Contains(t, merged.Files, "a.ts")

	merged = Merge(snap, nil)
	require.NotNil(t, merged)
	assert.Contains(t, merged.Files, "a.ts")
}

func TestMerge_IncomingWinsPerFile(t *testing.T) {
	existing := &Snapshot{Files: map[string]FileCoverage{
		"src/a.ts": fileCov(2, 10),
		"src/b.ts": fileCov(5, 5),
	}}
	existing.recomputeGroups()

	incoming := &Snapshot{Files: map[string]FileCoverage{
		"src/a.ts": fileCov(9, 10),
		"src/c.ts": fileCov(3, 4),
	}}
	incoming.recomputeGroups()

	merged := Merge(existing, incoming)
	require.NotNil(t, merged)

	assert.Equal(t, []string{"src/a.ts", "src/b.ts", "src/c.ts"}, merged.FilePaths())
	assert.Equal(t, 9, merged.Files["src/a.ts"].Lines.Covered, "newer run replaces the stale entry")
	assert.Equal(t, 5, merged.Files["src/b.ts"].Lines.Covered, "untouched file survives the merge")

	// Aggregates are recomputed from the merged file set, not summed.
	assert.Equal(t, 19, merged.Lines.Total)
	assert.Equal(t, 17, merged.Lines.Covered)
}

func TestMerge_Idempotent(t *testing.T) {
	snap := &Snapshot{Files: map[string]FileCoverage{
		"src/a.ts": fileCov(4, 8),
		"src/b.ts": fileCov(8, 8),
	}}
	snap.recomputeGroups()

	once := Merge(nil, snap)
	twice := Merge(once, snap)

	require.NotNil(t, twice)
	assert.Equal(t, once.Lines, twice.Lines)
	assert.Equal(t, once.Files, twice.Files)
}

func TestMerge_AlternatingRunsCoverUnion(t *testing.T) {
	runA := &Snapshot{Files: map[string]FileCoverage{
		"src/a.ts": fileCov(10, 10),
	}}
	runA.recomputeGroups()

	runB := &Snapshot{Files: map[string]FileCoverage{
		"src/b.ts": fileCov(7, 10),
	}}
	runB.recomputeGroups()

	merged := Merge(Merge(Merge(nil, runA), runB), runA)
	require.NotNil(t, merged)

	assert.Equal(t, []string{"src/a.ts", "src/b.ts"}, merged.FilePaths(),
		"running suite A again must not evict suite B's files")
	assert.Equal(t, 20, merged.Lines.Total)
	assert.Equal(t, 17, merged.Lines.Covered)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	existing := &Snapshot{Files: map[string]FileCoverage{
		"src/a.ts": fileCov(1, 4),
	}}
	existing.recomputeGroups()

	incoming := &Snapshot{Files: map[string]FileCoverage{
		"src/a.ts": fileCov(4, 4),
	}}
	incoming.recomputeGroups()

	_ = Merge(existing, incoming)

	assert.Equal(t, 1, existing.Files["src/a.ts"].Lines.Covered)
	assert.Equal(t, 4, incoming.Files["src/a.ts"].Lines.Covered)
}

func TestMerge_AggregateOnlySnapshots(t *testing.T) {
	// Some runners only report totals. Without per-file data the most
	// recent aggregates stand as-is.
	existing := &Snapshot{Lines: group(10, 20), Statements: group(10, 20)}
	incoming := &Snapshot{Lines: group(18, 20), Statements: group(18, 20)}

	merged := Merge(existing, incoming)
	require.NotNil(t, merged)
	assert.Equal(t, 18, merged.Lines.Covered)

	merged = Merge(existing, &Snapshot{})
	require.NotNil(t, merged)
	assert.Equal(t, 10, merged.Lines.Covered, "empty incoming keeps the existing aggregates")
}
