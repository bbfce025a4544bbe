package app

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
)

func TestBuildRegistry_DefaultsRegisterEnabledSections(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Project.Root = t.TempDir()

	registry, err := buildRegistry(&cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"complexity", "git", "notifications"}, registry.Names(),
		"tracker, review, environments and bridge stay out until enabled")
}

func TestBuildRegistry_AllIntegrations(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Project.Root = t.TempDir()
	cfg.Tracker.Enabled = true
	cfg.Tracker.BaseURL = "https://tracker.example.com"
	cfg.Review.Enabled = true
	cfg.Environments = []config.EnvironmentTarget{{Name: "staging", URL: "https://staging.example.com"}}
	cfg.Bridge.Enabled = true

	registry, err := buildRegistry(&cfg)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"bridge", "complexity", "environments", "git", "notifications", "review", "tracker"},
		registry.Names())
}

func TestBuildRegistry_BadBranchPatternSurfaces(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Project.Root = t.TempDir()
	cfg.Tracker.Enabled = true
	cfg.Tracker.BranchPattern = "("

	_, err := buildRegistry(&cfg)
	assert.ErrorContains(t, err, "configuring tracker")
}

func TestNew_AssemblesFromDefaults(t *testing.T) {
	root := t.TempDir()

	a, err := New(Options{ProjectRoot: root, LogOutput: io.Discard})
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(root), a.Config().Project.Name)
	assert.NotNil(t, a.Orchestrator())
	assert.Contains(t, a.Registry().Names(), "git")
}

func TestNew_BridgePortOverrideForcesBridgeOn(t *testing.T) {
	root := t.TempDir()

	a, err := New(Options{ProjectRoot: root, BridgePort: 9999, LogOutput: io.Discard})
	require.NoError(t, err)

	assert.True(t, a.Config().Bridge.Enabled)
	assert.Equal(t, 9999, a.Config().Bridge.Port)
	assert.Contains(t, a.Registry().Names(), "bridge")
}
