// Package app assembles a runnable agent: it configures logging, loads the
// layered configuration, constructs one collaborator per enabled
// integration, and wires everything into the orchestrator. Commands hold an
// Application and drive workflows through it.
package app

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/bridge"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/coverage"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/environments"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/executor"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/git"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/notify"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/orchestrator"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/review"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/scoring"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/tracker"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

// Options carries the command-line inputs that shape an Application.
type Options struct {
	ProjectRoot string // Empty means the working directory
	Debug       bool
	BridgePort  int       // When > 0, forces the IDE bridge on at this port
	LogOutput   io.Writer // Defaults to stderr
}

// Application is a fully wired agent instance.
type Application struct {
	cfg      config.Config
	registry *capability.Registry
	orch     *orchestrator.Orchestrator
}

// New builds an Application from options. Construction fails on invalid
// configuration or collaborator setup errors; a disabled integration is
// simply not registered.
func New(opts Options) (*Application, error) {
	level := logging.LevelInfo
	if opts.Debug {
		level = logging.LevelDebug
	}
	logging.Initialize(level, opts.LogOutput)

	cfg, err := config.LoadConfig(opts.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if opts.BridgePort > 0 {
		cfg.Bridge.Enabled = true
		cfg.Bridge.Port = opts.BridgePort
	}

	registry, err := buildRegistry(&cfg)
	if err != nil {
		return nil, err
	}

	root := cfg.Project.Root
	store := coverage.NewStore(filepath.Join(root, cfg.Coverage.StatePath))
	runner := executor.New(root)
	orch := orchestrator.New(&cfg, root, registry, store, runner)

	logging.Info("Bootstrap", "Assembled agent for %s with %d collaborator(s)",
		cfg.Project.Name, len(registry.Names()))

	return &Application{cfg: cfg, registry: registry, orch: orch}, nil
}

// Config returns the resolved configuration.
func (a *Application) Config() *config.Config { return &a.cfg }

// Registry returns the collaborator registry.
func (a *Application) Registry() *capability.Registry { return a.registry }

// Orchestrator returns the workflow engine.
func (a *Application) Orchestrator() *orchestrator.Orchestrator { return a.orch }

// Shutdown stops the watch loop, in-flight suites, and every collaborator
// with its own lifecycle.
func (a *Application) Shutdown() { a.orch.Shutdown() }

// buildRegistry registers one collaborator per enabled integration. The
// git client doubles as the tracker's branch source even when the git
// integration itself is disabled.
func buildRegistry(cfg *config.Config) (*capability.Registry, error) {
	registry := capability.NewRegistry()
	root := cfg.Project.Root

	gitClient := git.New(root, cfg.Git.RemoteName, cfg.Git.BaseBranch)
	if cfg.Git.Enabled {
		if err := registry.Register(gitClient); err != nil {
			return nil, err
		}
	}

	if cfg.Tracker.Enabled {
		trackerClient, err := tracker.New(cfg.Tracker, gitClient)
		if err != nil {
			return nil, fmt.Errorf("configuring tracker: %w", err)
		}
		if err := registry.Register(trackerClient); err != nil {
			return nil, err
		}
	}

	if cfg.Review.Enabled {
		source := review.NewGHSource(root, cfg.Review.Repository)
		if err := registry.Register(review.New(source, nil)); err != nil {
			return nil, err
		}
	}

	if cfg.Notifications.Console || cfg.Notifications.SlackWebhook != "" {
		multi, err := notify.FromConfig(cfg.Notifications)
		if err != nil {
			return nil, fmt.Errorf("configuring notifications: %w", err)
		}
		if err := registry.Register(multi); err != nil {
			return nil, err
		}
	}

	if len(cfg.Environments) > 0 {
		if err := registry.Register(environments.New(cfg.Environments)); err != nil {
			return nil, err
		}
	}

	if cfg.Complexity.Enabled {
		if err := registry.Register(scoring.New(root, cfg.Complexity)); err != nil {
			return nil, err
		}
	}

	if cfg.Bridge.Enabled {
		if err := registry.Register(bridge.New(cfg.Bridge.Port)); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
