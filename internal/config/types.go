package config

import (
	"time"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
)

// Config is the top-level configuration structure for testagent.
type Config struct {
	Project       ProjectSettings      `yaml:"project"`
	Watcher       WatcherSettings      `yaml:"watcher"`
	Suites        []suite.Definition   `yaml:"suites"`
	Coverage      CoverageSettings     `yaml:"coverage"`
	Git           GitSettings          `yaml:"git"`
	Tracker       TrackerSettings      `yaml:"tracker"`
	Review        ReviewSettings       `yaml:"review"`
	Notifications NotificationSettings `yaml:"notifications"`
	Environments  []EnvironmentTarget  `yaml:"environments,omitempty"`
	Complexity    ComplexitySettings   `yaml:"complexity"`
	Bridge        BridgeSettings       `yaml:"bridge"`
}

// ProjectSettings identifies the project under watch.
type ProjectSettings struct {
	Name string `yaml:"name,omitempty"` // Display name; defaults to the root directory's base name
	Root string `yaml:"root,omitempty"` // Absolute project root; defaults to the working directory
}

// WatcherSettings controls filesystem watching and change batching.
type WatcherSettings struct {
	Paths          []string      `yaml:"paths,omitempty"`          // Roots to watch, relative to project root (default: ["."])
	Extensions     []string      `yaml:"extensions,omitempty"`     // File extensions that count as changes, e.g. [".ts", ".tsx"]
	IgnorePatterns []string      `yaml:"ignorePatterns,omitempty"` // Glob patterns excluded from watching, e.g. ["node_modules/**"]
	DebounceDelay  time.Duration `yaml:"debounceDelay,omitempty"`  // Quiet period before a batch is emitted (default: 500ms)
}

// CoverageSettings controls coverage parsing, persistence and thresholds.
type CoverageSettings struct {
	Enabled          bool    `yaml:"enabled"`
	StatePath        string  `yaml:"statePath,omitempty"`        // Snapshot file, relative to project root (default: .testagent/coverage.json)
	GlobalThreshold  float64 `yaml:"globalThreshold,omitempty"`  // Minimum acceptable overall line coverage percent
	PerFileThreshold float64 `yaml:"perFileThreshold,omitempty"` // Files below this line percent count as coverage gaps
}

// GitSettings controls the git collaborator.
type GitSettings struct {
	Enabled       bool          `yaml:"enabled"`
	RemoteName    string        `yaml:"remoteName,omitempty"`    // Remote compared against for ahead/behind (default: origin)
	BaseBranch    string        `yaml:"baseBranch,omitempty"`    // Branch merges are measured against (default: main)
	CheckInterval time.Duration `yaml:"checkInterval,omitempty"` // How often the watch loop re-reads branch status
}

// TrackerSettings controls the issue tracker collaborator. The API token
// is never stored here; it comes from the TESTAGENT_TRACKER_TOKEN
// environment variable (optionally via the project's .env file).
type TrackerSettings struct {
	Enabled       bool   `yaml:"enabled"`
	BaseURL       string `yaml:"baseURL,omitempty"`       // e.g. https://company.atlassian.net
	ProjectKey    string `yaml:"projectKey,omitempty"`    // Issue key prefix expected in branch names, e.g. "PROJ"
	Email         string `yaml:"email,omitempty"`         // Account the token belongs to
	RequestSecret string `yaml:"-"`                       // Populated from the environment, never serialized
	BranchPattern string `yaml:"branchPattern,omitempty"` // Regexp extracting the ticket key from branch names
}

// ReviewSettings controls the code review collaborator.
type ReviewSettings struct {
	Enabled    bool   `yaml:"enabled"`
	Provider   string `yaml:"provider,omitempty"`   // "github" is the only provider currently wired
	Repository string `yaml:"repository,omitempty"` // owner/name; defaults to the origin remote when empty
}

// NotificationSettings controls where run outcomes are announced.
type NotificationSettings struct {
	Console      bool    `yaml:"console"`                // Styled terminal output
	SlackWebhook string  `yaml:"-"`                      // Populated from TESTAGENT_SLACK_WEBHOOK, never serialized
	SlackChannel string  `yaml:"slackChannel,omitempty"` // Optional channel override for the webhook
	RatePerMin   float64 `yaml:"ratePerMinute,omitempty"`
	MinLevel     string  `yaml:"minLevel,omitempty"` // Lowest level forwarded to external sinks (default: warning)
}

// EnvironmentTarget names a deployed environment whose health the agent polls.
type EnvironmentTarget struct {
	Name     string        `yaml:"name"`
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval,omitempty"` // Poll interval (default: 5m)
}

// ComplexitySettings controls the complexity scorer.
type ComplexitySettings struct {
	Enabled       bool    `yaml:"enabled"`
	WarnThreshold float64 `yaml:"warnThreshold,omitempty"` // Scores above this trigger a warning notification
	BaselinePath  string  `yaml:"baselinePath,omitempty"`  // Baseline scores file (default: .testagent/complexity.json)
}

// BridgeSettings controls the IDE bridge websocket listener.
type BridgeSettings struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port,omitempty"` // Listen port for IDE clients (default: 8765)
}
