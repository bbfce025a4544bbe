package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
)

// Helper to write a raw YAML config file under dir.
func writeConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	confDir := filepath.Join(dir, projectConfigDir)
	require.NoError(t, os.MkdirAll(confDir, 0755))
	path := filepath.Join(confDir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func mockUserConfigPath(t *testing.T, path string) {
	t.Helper()
	original := getUserConfigPath
	t.Cleanup(func() { getUserConfigPath = original })
	getUserConfigPath = func() (string, error) { return path, nil }
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	tempDir := t.TempDir()
	mockUserConfigPath(t, filepath.Join(tempDir, "no-user-config.yaml"))

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)

	defaults := GetDefaultConfig()
	assert.Equal(t, tempDir, loaded.Project.Root)
	assert.Equal(t, filepath.Base(tempDir), loaded.Project.Name)
	assert.Equal(t, defaults.Watcher.DebounceDelay, loaded.Watcher.DebounceDelay)
	assert.Equal(t, defaults.Coverage, loaded.Coverage)
	assert.ElementsMatch(t, defaults.Suites, loaded.Suites)
}

func TestLoadConfig_ProjectOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	mockUserConfigPath(t, filepath.Join(tempDir, "no-user-config.yaml"))

	writeConfigFile(t, tempDir, `
project:
  name: storefront
watcher:
  debounceDelay: 500ms
suites:
  - kind: unit
    patterns: ["lib/**/*.ts"]
    command: "yarn test"
    priority: 1
    enabled: true
`)

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)

	assert.Equal(t, "storefront", loaded.Project.Name)
	assert.Equal(t, 500*time.Millisecond, loaded.Watcher.DebounceDelay)

	// The unit suite is replaced; other default suites survive.
	var unit *suite.Definition
	kinds := map[suite.Kind]bool{}
	for i := range loaded.Suites {
		kinds[loaded.Suites[i].Kind] = true
		if loaded.Suites[i].Kind == suite.KindUnit {
			unit = &loaded.Suites[i]
		}
	}
	require.NotNil(t, unit)
	assert.Equal(t, "yarn test", unit.RunCommand)
	assert.Equal(t, []string{"lib/**/*.ts"}, unit.MatchPatterns)
	assert.True(t, kinds[suite.KindIntegration])
	assert.True(t, kinds[suite.KindE2E])
}

func TestLoadConfig_OmittedSectionsKeepDefaults(t *testing.T) {
	tempDir := t.TempDir()
	mockUserConfigPath(t, filepath.Join(tempDir, "no-user-config.yaml"))

	// The file says nothing about coverage or notifications, so the
	// defaults (both enabled) must survive the merge untouched.
	writeConfigFile(t, tempDir, `
git:
  enabled: false
`)

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)

	assert.False(t, loaded.Git.Enabled)
	assert.True(t, loaded.Coverage.Enabled, "absent coverage section must not disable coverage")
	assert.True(t, loaded.Notifications.Console, "absent notifications section must not mute the console")
}

func TestLoadConfig_UserThenProjectLayering(t *testing.T) {
	tempDir := t.TempDir()
	userDir := t.TempDir()

	userPath := filepath.Join(userDir, configFileName)
	require.NoError(t, os.WriteFile(userPath, []byte(`
watcher:
  debounceDelay: 10s
coverage:
  enabled: true
  globalThreshold: 90
`), 0644))
	mockUserConfigPath(t, userPath)

	writeConfigFile(t, tempDir, `
watcher:
  debounceDelay: 1s
`)

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)

	assert.Equal(t, 1*time.Second, loaded.Watcher.DebounceDelay, "project layer beats user layer")
	assert.Equal(t, 90.0, loaded.Coverage.GlobalThreshold, "user layer beats defaults")
}

func TestLoadConfig_InvalidSuiteConfigRejected(t *testing.T) {
	tempDir := t.TempDir()
	mockUserConfigPath(t, filepath.Join(tempDir, "no-user-config.yaml"))

	writeConfigFile(t, tempDir, `
suites:
  - kind: smoke
    patterns: ["**"]
    command: "npm test"
`)

	_, err := LoadConfig(tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smoke")
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	tempDir := t.TempDir()
	mockUserConfigPath(t, filepath.Join(tempDir, "no-user-config.yaml"))

	writeConfigFile(t, tempDir, "watcher: [not: a mapping\n")

	_, err := LoadConfig(tempDir)
	assert.Error(t, err)
}

func TestLoadConfig_SecretsFromEnvFile(t *testing.T) {
	tempDir := t.TempDir()
	mockUserConfigPath(t, filepath.Join(tempDir, "no-user-config.yaml"))

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".env"),
		[]byte("TESTAGENT_TRACKER_TOKEN=tok-123\n"), 0644))
	t.Setenv("TESTAGENT_TRACKER_TOKEN", "placeholder")
	os.Unsetenv("TESTAGENT_TRACKER_TOKEN")

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", loaded.Tracker.RequestSecret)
}

func TestLoadConfig_EnvOverridesEnvFile(t *testing.T) {
	tempDir := t.TempDir()
	mockUserConfigPath(t, filepath.Join(tempDir, "no-user-config.yaml"))

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".env"),
		[]byte("TESTAGENT_SLACK_WEBHOOK=https://hooks.example/from-file\n"), 0644))
	t.Setenv("TESTAGENT_SLACK_WEBHOOK", "https://hooks.example/from-env")

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example/from-env", loaded.Notifications.SlackWebhook,
		"exported variables win over the .env file")
}

func TestValidate(t *testing.T) {
	base := GetDefaultConfig()

	t.Run("tracker needs a base URL", func(t *testing.T) {
		cfg := base
		cfg.Tracker.Enabled = true
		cfg.Tracker.BaseURL = ""
		assert.Error(t, Validate(&cfg))
	})

	t.Run("bridge port bounds", func(t *testing.T) {
		cfg := base
		cfg.Bridge.Enabled = true
		cfg.Bridge.Port = 70000
		assert.Error(t, Validate(&cfg))
	})

	t.Run("threshold bounds", func(t *testing.T) {
		cfg := base
		cfg.Coverage.GlobalThreshold = 120
		assert.Error(t, Validate(&cfg))
	})

	t.Run("environment needs name and url", func(t *testing.T) {
		cfg := base
		cfg.Environments = []EnvironmentTarget{{Name: "staging"}}
		assert.Error(t, Validate(&cfg))
	})
}

func TestSaveProjectConfig_RoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	mockUserConfigPath(t, filepath.Join(tempDir, "no-user-config.yaml"))

	cfg := GetDefaultConfig()
	cfg.Project.Name = "saved-project"

	path, err := SaveProjectConfig(tempDir, cfg)
	require.NoError(t, err)
	assert.Equal(t, getProjectConfigPath(tempDir), path)

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, "saved-project", loaded.Project.Name)
}
