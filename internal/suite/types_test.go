package suite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/coverage"
)

func validDefs() []Definition {
	return []Definition{
		{
			Kind:          KindUnit,
			MatchPatterns: []string{"src/**/*.ts"},
			RunCommand:    "npm test",
			Priority:      1,
			Enabled:       true,
		},
		{
			Kind:          KindE2E,
			MatchPatterns: []string{"e2e/**"},
			RunCommand:    "npm run test:e2e",
			Priority:      3,
			Enabled:       true,
			Timeout:       10 * time.Minute,
		},
	}
}

func TestKind_Valid(t *testing.T) {
	for _, k := range KnownKinds() {
		assert.True(t, k.Valid(), "known kind %q must validate", k)
		assert.NotEmpty(t, k.Display())
	}
	assert.False(t, Kind("smoke").Valid())
	assert.False(t, Kind("").Valid())
}

func TestKind_CoverageFormats(t *testing.T) {
	assert.Contains(t, KindUnit.CoverageFormats(), coverage.FormatSummaryText)
	assert.Contains(t, KindUnit.CoverageFormats(), coverage.FormatLCOV)
	assert.Empty(t, KindE2E.CoverageFormats(), "browser suites report no coverage")
	assert.Empty(t, KindPerformance.CoverageFormats())
}

func TestValidateDefinitions(t *testing.T) {
	require.NoError(t, ValidateDefinitions(validDefs()))

	t.Run("unknown kind", func(t *testing.T) {
		defs := validDefs()
		defs[0].Kind = "smoke"
		err := ValidateDefinitions(defs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "smoke")
	})

	t.Run("duplicate kind", func(t *testing.T) {
		defs := append(validDefs(), validDefs()[0])
		err := ValidateDefinitions(defs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("missing run command", func(t *testing.T) {
		defs := validDefs()
		defs[0].RunCommand = ""
		assert.Error(t, ValidateDefinitions(defs))
	})

	t.Run("no patterns", func(t *testing.T) {
		defs := validDefs()
		defs[0].MatchPatterns = nil
		assert.Error(t, ValidateDefinitions(defs))
	})

	t.Run("malformed pattern", func(t *testing.T) {
		defs := validDefs()
		defs[0].MatchPatterns = []string{"src/[unclosed"}
		assert.Error(t, ValidateDefinitions(defs))
	})
}

func TestDefinition_HasCoverage(t *testing.T) {
	def := Definition{Kind: KindUnit, CoverageCommand: "npm test -- --coverage"}
	assert.True(t, def.HasCoverage())

	def.CoverageCommand = ""
	assert.False(t, def.HasCoverage())

	// A coverage command on a kind that produces no parseable formats
	// still counts: the run happens, parsing just yields nothing.
	def = Definition{Kind: KindE2E, CoverageCommand: "npm run test:e2e -- --coverage"}
	assert.True(t, def.HasCoverage())
}

func TestDecision_Empty(t *testing.T) {
	assert.True(t, Decision{}.Empty())
	assert.False(t, Decision{SuitesToRun: []Definition{{Kind: KindUnit}}}.Empty())
}
