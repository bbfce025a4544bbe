package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/testagent"
	projectConfigDir = ".testagent"
	configFileName   = "config.yaml"

	envTrackerToken = "TESTAGENT_TRACKER_TOKEN"
	envSlackWebhook = "TESTAGENT_SLACK_WEBHOOK"
)

// LoadConfig loads the testagent configuration for the given project root
// by layering default, user, and project settings. An empty projectRoot
// means the current working directory. Secrets are read from the
// environment after an optional <root>/.env file is loaded.
func LoadConfig(projectRoot string) (Config, error) {
	root, err := resolveProjectRoot(projectRoot)
	if err != nil {
		return Config{}, err
	}

	// 1. Start with the default configuration
	config := GetDefaultConfig()
	config.Project.Root = root
	if config.Project.Name == "" {
		config.Project.Name = filepath.Base(root)
	}

	// 2. Layer the user-level configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional; keep going with defaults.
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return Config{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	// 3. Layer the project-level configuration
	projectConfigPath := getProjectConfigPath(root)
	if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
		projectConfig, err := loadConfigFromFile(projectConfigPath)
		if err != nil {
			return Config{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
		}
		config = mergeConfigs(config, projectConfig)
	}

	// 4. Pull secrets from the environment. A project .env is loaded
	// first so local development setups work without exporting vars;
	// godotenv never overrides variables that are already set.
	loadSecrets(&config, root)

	if err := Validate(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}

func resolveProjectRoot(projectRoot string) (string, error) {
	if projectRoot == "" {
		wd, err := osGetwd()
		if err != nil {
			return "", fmt.Errorf("determining working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", fmt.Errorf("resolving project root %s: %w", projectRoot, err)
	}
	return abs, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

func getProjectConfigPath(root string) string {
	return filepath.Join(root, projectConfigDir, configFileName)
}

// fileConfig pairs a parsed overlay with the set of top-level sections
// the file actually contains. A section that is absent from the file
// must not clobber lower layers with zero values, and a plain struct
// unmarshal cannot tell "absent" from "explicitly false".
type fileConfig struct {
	config   Config
	sections map[string]bool
}

func (f fileConfig) has(section string) bool {
	return f.sections[section]
}

// loadConfigFromFile loads a Config overlay from a YAML file.
func loadConfigFromFile(filePath string) (fileConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fileConfig{}, err
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fileConfig{}, err
	}
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fileConfig{}, err
	}
	sections := make(map[string]bool, len(raw))
	for key := range raw {
		sections[key] = true
	}
	return fileConfig{config: config, sections: sections}, nil
}

func loadSecrets(config *Config, root string) {
	envFile := filepath.Join(root, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logging.Warn("Config", "Could not load %s: %v", envFile, err)
		}
	}
	if token := os.Getenv(envTrackerToken); token != "" {
		config.Tracker.RequestSecret = token
	}
	if webhook := os.Getenv(envSlackWebhook); webhook != "" {
		config.Notifications.SlackWebhook = webhook
	}
}

// mergeConfigs merges the overlay file into 'base'. Only sections the
// file contains are applied; inside a present section, bools are taken
// verbatim and other fields override when non-zero.
func mergeConfigs(base Config, overlay fileConfig) Config {
	mergedConfig := base
	o := overlay.config

	if overlay.has("project") {
		if o.Project.Name != "" {
			mergedConfig.Project.Name = o.Project.Name
		}
	}

	if overlay.has("watcher") {
		if len(o.Watcher.Paths) > 0 {
			mergedConfig.Watcher.Paths = o.Watcher.Paths
		}
		if len(o.Watcher.Extensions) > 0 {
			mergedConfig.Watcher.Extensions = o.Watcher.Extensions
		}
		if len(o.Watcher.IgnorePatterns) > 0 {
			mergedConfig.Watcher.IgnorePatterns = o.Watcher.IgnorePatterns
		}
		if o.Watcher.DebounceDelay != 0 {
			mergedConfig.Watcher.DebounceDelay = o.Watcher.DebounceDelay
		}
	}

	// Suites merge by kind: an overlay entry replaces the base entry of
	// the same kind, new kinds append in overlay order.
	if overlay.has("suites") && len(o.Suites) > 0 {
		byKind := make(map[suite.Kind]suite.Definition, len(o.Suites))
		for _, def := range o.Suites {
			byKind[def.Kind] = def
		}
		merged := make([]suite.Definition, 0, len(mergedConfig.Suites)+len(o.Suites))
		seen := make(map[suite.Kind]bool)
		for _, def := range mergedConfig.Suites {
			if replacement, ok := byKind[def.Kind]; ok {
				merged = append(merged, replacement)
			} else {
				merged = append(merged, def)
			}
			seen[def.Kind] = true
		}
		for _, def := range o.Suites {
			if !seen[def.Kind] {
				merged = append(merged, def)
				seen[def.Kind] = true
			}
		}
		mergedConfig.Suites = merged
	}

	if overlay.has("coverage") {
		if o.Coverage.StatePath != "" {
			mergedConfig.Coverage.StatePath = o.Coverage.StatePath
		}
		if o.Coverage.GlobalThreshold != 0 {
			mergedConfig.Coverage.GlobalThreshold = o.Coverage.GlobalThreshold
		}
		if o.Coverage.PerFileThreshold != 0 {
			mergedConfig.Coverage.PerFileThreshold = o.Coverage.PerFileThreshold
		}
		mergedConfig.Coverage.Enabled = o.Coverage.Enabled
	}

	if overlay.has("git") {
		if o.Git.RemoteName != "" {
			mergedConfig.Git.RemoteName = o.Git.RemoteName
		}
		if o.Git.BaseBranch != "" {
			mergedConfig.Git.BaseBranch = o.Git.BaseBranch
		}
		if o.Git.CheckInterval != 0 {
			mergedConfig.Git.CheckInterval = o.Git.CheckInterval
		}
		mergedConfig.Git.Enabled = o.Git.Enabled
	}

	if overlay.has("tracker") {
		if o.Tracker.BaseURL != "" {
			mergedConfig.Tracker.BaseURL = o.Tracker.BaseURL
		}
		if o.Tracker.ProjectKey != "" {
			mergedConfig.Tracker.ProjectKey = o.Tracker.ProjectKey
		}
		if o.Tracker.Email != "" {
			mergedConfig.Tracker.Email = o.Tracker.Email
		}
		if o.Tracker.BranchPattern != "" {
			mergedConfig.Tracker.BranchPattern = o.Tracker.BranchPattern
		}
		mergedConfig.Tracker.Enabled = o.Tracker.Enabled
	}

	if overlay.has("review") {
		if o.Review.Provider != "" {
			mergedConfig.Review.Provider = o.Review.Provider
		}
		if o.Review.Repository != "" {
			mergedConfig.Review.Repository = o.Review.Repository
		}
		mergedConfig.Review.Enabled = o.Review.Enabled
	}

	if overlay.has("notifications") {
		if o.Notifications.SlackChannel != "" {
			mergedConfig.Notifications.SlackChannel = o.Notifications.SlackChannel
		}
		if o.Notifications.RatePerMin != 0 {
			mergedConfig.Notifications.RatePerMin = o.Notifications.RatePerMin
		}
		if o.Notifications.MinLevel != "" {
			mergedConfig.Notifications.MinLevel = o.Notifications.MinLevel
		}
		mergedConfig.Notifications.Console = o.Notifications.Console
	}

	if overlay.has("environments") {
		mergedConfig.Environments = o.Environments
	}

	if overlay.has("complexity") {
		if o.Complexity.WarnThreshold != 0 {
			mergedConfig.Complexity.WarnThreshold = o.Complexity.WarnThreshold
		}
		if o.Complexity.BaselinePath != "" {
			mergedConfig.Complexity.BaselinePath = o.Complexity.BaselinePath
		}
		mergedConfig.Complexity.Enabled = o.Complexity.Enabled
	}

	if overlay.has("bridge") {
		if o.Bridge.Port != 0 {
			mergedConfig.Bridge.Port = o.Bridge.Port
		}
		mergedConfig.Bridge.Enabled = o.Bridge.Enabled
	}

	return mergedConfig
}

// Validate rejects configurations the agent cannot run with. Suite
// definitions carry most of the rules; the rest are sanity bounds.
func Validate(config *Config) error {
	if err := suite.ValidateDefinitions(config.Suites); err != nil {
		return fmt.Errorf("invalid suite configuration: %w", err)
	}
	if config.Watcher.DebounceDelay < 0 {
		return fmt.Errorf("watcher debounce delay cannot be negative")
	}
	if config.Coverage.GlobalThreshold < 0 || config.Coverage.GlobalThreshold > 100 {
		return fmt.Errorf("coverage global threshold must be between 0 and 100, got %v", config.Coverage.GlobalThreshold)
	}
	if config.Coverage.PerFileThreshold < 0 || config.Coverage.PerFileThreshold > 100 {
		return fmt.Errorf("coverage per-file threshold must be between 0 and 100, got %v", config.Coverage.PerFileThreshold)
	}
	if config.Bridge.Enabled && (config.Bridge.Port <= 0 || config.Bridge.Port > 65535) {
		return fmt.Errorf("bridge port must be between 1 and 65535, got %d", config.Bridge.Port)
	}
	for i, env := range config.Environments {
		if env.Name == "" {
			return fmt.Errorf("environment %d: name is required", i)
		}
		if env.URL == "" {
			return fmt.Errorf("environment %q: url is required", env.Name)
		}
	}
	if config.Tracker.Enabled && config.Tracker.BaseURL == "" {
		return fmt.Errorf("tracker is enabled but no baseURL is configured")
	}
	return nil
}

// SaveProjectConfig writes the config to <root>/.testagent/config.yaml.
// Used by `testagent init` to scaffold a project.
func SaveProjectConfig(root string, config Config) (string, error) {
	configPath := getProjectConfigPath(root)
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(&config)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return configPath, nil
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
