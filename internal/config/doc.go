// Package config provides configuration management for testagent.
//
// This package implements a layered configuration system that allows users to
// customize testagent's behavior through YAML files. Configuration is loaded
// from multiple sources and merged in a specific order, with later sources
// overriding earlier ones.
//
// # Configuration Layers
//
// Configuration is loaded and merged in the following order:
//
//  1. Default Configuration (embedded in binary)
//     - Provides sensible defaults for an npm/TypeScript project
//     - Ensures testagent works out-of-the-box after `testagent init`
//
//  2. User Configuration (~/.config/testagent/config.yaml)
//     - User-specific settings that apply to all projects
//     - Useful for personal preferences and common overrides
//
//  3. Project Configuration (<root>/.testagent/config.yaml)
//     - Project-specific settings under the watched project root
//     - Allows teams to share configuration via version control
//
// Only the top-level sections a file actually contains are merged, so a
// project file that tweaks the watcher does not reset the coverage or
// notification settings layered below it.
//
// # Configuration Structure
//
// The configuration file uses YAML format with the following main sections:
//
//	watcher:
//	  extensions: [".ts", ".tsx"]
//	  ignorePatterns: ["node_modules/**", "dist/**"]
//	  debounceDelay: 2s
//
//	suites:
//	  - kind: unit
//	    patterns: ["src/**/*.ts"]
//	    command: "npm test"
//	    coverageCommand: "npm test -- --coverage"
//	    priority: 1
//	    enabled: true
//	    timeout: 5m
//
//	coverage:
//	  enabled: true
//	  globalThreshold: 80
//	  perFileThreshold: 70
//
//	notifications:
//	  console: true
//	  minLevel: warning
//
// # Secrets
//
// API tokens never live in the YAML files. They are read from the
// environment, with an optional <root>/.env file loaded first:
//
//	TESTAGENT_TRACKER_TOKEN  issue tracker API token
//	TESTAGENT_SLACK_WEBHOOK  Slack incoming webhook URL
//
// # Usage Example
//
//	cfg, err := config.LoadConfig("/path/to/project")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, def := range cfg.Suites {
//	    if def.Enabled {
//	        fmt.Printf("suite %s: %s\n", def.Kind, def.RunCommand)
//	    }
//	}
package config
