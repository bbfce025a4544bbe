package config

import (
	"time"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
)

// GetDefaultConfig returns the configuration used when no config file
// exists. The suite commands assume an npm project; `testagent init`
// writes these out so users have something concrete to edit.
func GetDefaultConfig() Config {
	return Config{
		Watcher: WatcherSettings{
			Paths:      []string{"."},
			Extensions: []string{".ts", ".tsx", ".js", ".jsx"},
			IgnorePatterns: []string{
				"node_modules/**",
				"dist/**",
				"build/**",
				"coverage/**",
				".git/**",
				".testagent/**",
			},
			DebounceDelay: 500 * time.Millisecond,
		},
		Suites: []suite.Definition{
			{
				Kind:            suite.KindUnit,
				MatchPatterns:   []string{"src/**/*.{ts,tsx,js,jsx}"},
				RunCommand:      "npm test",
				CoverageCommand: "npm test -- --coverage",
				Priority:        3,
				Enabled:         true,
				Timeout:         5 * time.Minute,
			},
			{
				Kind:          suite.KindIntegration,
				MatchPatterns: []string{"src/api/**", "src/services/**"},
				RunCommand:    "npm run test:integration",
				Priority:      2,
				Enabled:       false,
				Timeout:       10 * time.Minute,
			},
			{
				Kind:          suite.KindE2E,
				MatchPatterns: []string{"e2e/**", "cypress/**"},
				RunCommand:    "npm run test:e2e",
				Priority:      1,
				Enabled:       false,
				Timeout:       15 * time.Minute,
			},
		},
		Coverage: CoverageSettings{
			Enabled:          true,
			StatePath:        ".testagent/coverage.json",
			GlobalThreshold:  80,
			PerFileThreshold: 70,
		},
		Git: GitSettings{
			Enabled:       true,
			RemoteName:    "origin",
			BaseBranch:    "main",
			CheckInterval: 5 * time.Minute,
		},
		Tracker: TrackerSettings{
			Enabled:       false,
			BranchPattern: `([A-Z][A-Z0-9]+-\d+)`,
		},
		Review: ReviewSettings{
			Enabled:  false,
			Provider: "github",
		},
		Notifications: NotificationSettings{
			Console:    true,
			RatePerMin: 10,
			MinLevel:   "warning",
		},
		Complexity: ComplexitySettings{
			Enabled:       true,
			WarnThreshold: 10,
			BaselinePath:  ".testagent/complexity.json",
		},
		Bridge: BridgeSettings{
			Enabled: false,
			Port:    8765,
		},
	}
}
