// Package orchestrator composes the test-orchestration core and the
// external collaborators into named workflows. Each workflow runs a set of
// steps, captures every step's outcome independently, and folds them into
// one WorkflowResult. The orchestrator is stateless across invocations
// except for a short-lived step cache and the in-memory coverage snapshot.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/coverage"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/environments"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/git"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/notify"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/review"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/scoring"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/watcher"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const subsystem = "Orchestrator"

// DefaultCacheTTL is how long cached step values stay fresh. Cached steps
// wrap rate-limited or latency-sensitive collaborator calls.
const DefaultCacheTTL = 60 * time.Second

// pingTimeout bounds each collaborator reachability check.
const pingTimeout = 5 * time.Second

// Narrow views of the collaborators, so workflows depend on behavior
// rather than concrete clients and tests can register fakes.
type (
	// SourceControl is the read-only slice of the git collaborator.
	SourceControl interface {
		CurrentBranch(ctx context.Context) (string, error)
		Changes(ctx context.Context) ([]git.Change, error)
		Status(ctx context.Context) (git.Status, error)
	}

	// TicketSource resolves and inspects the ticket behind the current branch.
	TicketSource interface {
		TicketForCurrentBranch(ctx context.Context) (string, error)
		TicketIssues(ctx context.Context, key string) ([]string, error)
	}

	// ReviewSource lists pending code-review feedback.
	ReviewSource interface {
		PendingReviewSignals(ctx context.Context) (review.Signals, error)
	}

	// EnvironmentChecker polls deployed environments once.
	EnvironmentChecker interface {
		Check(ctx context.Context) []environments.Health
	}

	// ComplexityScorer scores files and compares them to the baseline.
	ComplexityScorer interface {
		ScoreFiles(paths []string) scoring.Report
		LoadBaseline() (*scoring.Report, error)
		Compare(current scoring.Report, baseline *scoring.Report) []scoring.Delta
		WarnThreshold() float64
	}

	// Notifier delivers a notification; delivery failure is non-fatal.
	Notifier interface {
		Send(ctx context.Context, n notify.Notification) error
	}

	// Broadcaster pushes an event to connected IDE clients.
	Broadcaster interface {
		Broadcast(eventType string, payload interface{})
	}

	// SuiteRunner executes selected suites and supports bulk cancellation.
	SuiteRunner interface {
		Run(ctx context.Context, defs []suite.Definition, triggeringPaths []string, collectCoverage bool) []suite.Result
		CancelAll()
	}

	// starter and stopper are implemented by capabilities with their own
	// lifecycle (the bridge listener, the environment pollers).
	starter interface {
		Start(ctx context.Context) error
	}
	stopper interface {
		Stop()
	}
)

// WorkflowResult is the aggregate outcome of one workflow invocation. It
// is returned to the caller and never persisted.
type WorkflowResult struct {
	Workflow string
	Success  bool
	Results  map[string]interface{}
	Errors   map[string]string
	Summary  string
	Duration time.Duration
}

// step is one unit of workflow work. Steps in the same phase run
// concurrently; a step failing or panicking is recorded, never propagated.
// Critical steps force Success=false on failure but still let siblings
// finish.
type step struct {
	name     string
	critical bool
	cached   bool
	fn       func(ctx context.Context) (interface{}, error)
}

type stepOutcome struct {
	value interface{}
	err   error
}

type cacheEntry struct {
	value      interface{}
	computedAt time.Time
}

// Orchestrator drives the named workflows and the watch loop.
type Orchestrator struct {
	cfg      *config.Config
	root     string
	registry *capability.Registry
	store    *coverage.Store
	runner   SuiteRunner

	cacheTTL time.Duration
	cacheMu  sync.Mutex
	cache    map[string]cacheEntry

	snapMu     sync.Mutex
	snapshot   *coverage.Snapshot
	snapLoaded bool

	watchMu    sync.Mutex
	aggregator *watcher.Aggregator
	watchWG    sync.WaitGroup
}

// New builds an orchestrator over an already-validated configuration and a
// registry of the enabled collaborators.
func New(cfg *config.Config, root string, registry *capability.Registry, store *coverage.Store, runner SuiteRunner) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		root:     root,
		registry: registry,
		store:    store,
		runner:   runner,
		cacheTTL: DefaultCacheTTL,
		cache:    make(map[string]cacheEntry),
	}
}

// Capability lookups. A missing or wrongly-typed capability reads as "not
// configured" and the consuming step degrades instead of failing.

func (o *Orchestrator) sourceControl() (SourceControl, bool) {
	c, ok := o.registry.FirstOfKind(capability.KindGit)
	if !ok {
		return nil, false
	}
	sc, ok := c.(SourceControl)
	return sc, ok
}

func (o *Orchestrator) ticketSource() (TicketSource, bool) {
	c, ok := o.registry.FirstOfKind(capability.KindTracker)
	if !ok {
		return nil, false
	}
	ts, ok := c.(TicketSource)
	return ts, ok
}

func (o *Orchestrator) reviewSource() (ReviewSource, bool) {
	c, ok := o.registry.FirstOfKind(capability.KindReview)
	if !ok {
		return nil, false
	}
	rs, ok := c.(ReviewSource)
	return rs, ok
}

func (o *Orchestrator) environmentChecker() (EnvironmentChecker, bool) {
	c, ok := o.registry.FirstOfKind(capability.KindEnvironments)
	if !ok {
		return nil, false
	}
	ec, ok := c.(EnvironmentChecker)
	return ec, ok
}

func (o *Orchestrator) complexityScorer() (ComplexityScorer, bool) {
	c, ok := o.registry.FirstOfKind(capability.KindComplexity)
	if !ok {
		return nil, false
	}
	cs, ok := c.(ComplexityScorer)
	return cs, ok
}

func (o *Orchestrator) notifier() (Notifier, bool) {
	c, ok := o.registry.FirstOfKind(capability.KindNotifications)
	if !ok {
		return nil, false
	}
	n, ok := c.(Notifier)
	return n, ok
}

func (o *Orchestrator) broadcaster() (Broadcaster, bool) {
	c, ok := o.registry.FirstOfKind(capability.KindBridge)
	if !ok {
		return nil, false
	}
	b, ok := c.(Broadcaster)
	return b, ok
}

func newWorkflowResult(workflow string) WorkflowResult {
	return WorkflowResult{
		Workflow: workflow,
		Success:  true,
		Results:  make(map[string]interface{}),
		Errors:   make(map[string]string),
	}
}

// runPhase executes one phase of steps concurrently and folds the outcomes
// into the result. It waits for every step regardless of individual
// failures.
func (o *Orchestrator) runPhase(ctx context.Context, phase []step, result *WorkflowResult, criticalFailed *[]string) {
	outcomes := make([]stepOutcome, len(phase))

	var wg sync.WaitGroup
	for i := range phase {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = o.runStep(ctx, phase[i])
		}(i)
	}
	wg.Wait()

	for i, s := range phase {
		if outcomes[i].value != nil {
			result.Results[s.name] = outcomes[i].value
		}
		if outcomes[i].err != nil {
			result.Errors[s.name] = outcomes[i].err.Error()
			logging.Warn(subsystem, "Workflow %s step %s failed: %v", result.Workflow, s.name, outcomes[i].err)
			if s.critical {
				result.Success = false
				*criticalFailed = append(*criticalFailed, s.name)
			}
		}
	}
}

// runStep executes one step, serving cached steps from the cache and
// converting panics into recorded errors. Only successful values are
// cached.
func (o *Orchestrator) runStep(ctx context.Context, s step) (out stepOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = stepOutcome{err: fmt.Errorf("step panicked: %v", r)}
		}
	}()

	if s.cached {
		if value, ok := o.cachedValue(s.name); ok {
			logging.Debug(subsystem, "Step %s served from cache", s.name)
			return stepOutcome{value: value}
		}
	}

	value, err := s.fn(ctx)
	if err == nil && s.cached {
		o.storeCache(s.name, value)
	}
	return stepOutcome{value: value, err: err}
}

func (o *Orchestrator) cachedValue(key string) (interface{}, bool) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()

	entry, ok := o.cache[key]
	if !ok || time.Since(entry.computedAt) > o.cacheTTL {
		return nil, false
	}
	return entry.value, true
}

func (o *Orchestrator) storeCache(key string, value interface{}) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	o.cache[key] = cacheEntry{value: value, computedAt: time.Now()}
}

// InvalidateCache drops every cached step value.
func (o *Orchestrator) InvalidateCache() {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	o.cache = make(map[string]cacheEntry)
}

// currentSnapshot lazily loads the persisted coverage snapshot. A load
// failure degrades to "no coverage data" and is not retried until the next
// process start.
func (o *Orchestrator) currentSnapshot() *coverage.Snapshot {
	o.snapMu.Lock()
	defer o.snapMu.Unlock()

	if !o.snapLoaded {
		snap, err := o.store.Load()
		if err != nil {
			logging.Warn(subsystem, "Proceeding without coverage data: %v", err)
		}
		o.snapshot = snap
		o.snapLoaded = true
	}
	return o.snapshot
}

// mergeCoverage folds per-suite snapshots into the working snapshot and
// persists the merge. Persistence failures are logged, not propagated.
func (o *Orchestrator) mergeCoverage(results []suite.Result) {
	o.snapMu.Lock()
	merged := false
	for _, r := range results {
		if r.Coverage != nil {
			o.snapshot = coverage.Merge(o.snapshot, r.Coverage)
			merged = true
		}
	}
	snap := o.snapshot
	if merged {
		o.snapLoaded = true
	}
	o.snapMu.Unlock()

	if !merged {
		return
	}
	if err := o.store.Persist(snap); err != nil {
		logging.Warn(subsystem, "Failed to persist coverage snapshot: %v", err)
	}
}

// notifyOut delivers a notification when a notifier is configured.
func (o *Orchestrator) notifyOut(ctx context.Context, n notify.Notification) {
	sink, ok := o.notifier()
	if !ok {
		return
	}
	if err := sink.Send(ctx, n); err != nil {
		logging.Warn(subsystem, "Notification delivery failed: %v", err)
	}
}

// broadcast pushes an event to the IDE bridge when one is registered.
func (o *Orchestrator) broadcast(eventType string, payload interface{}) {
	b, ok := o.broadcaster()
	if !ok {
		return
	}
	b.Broadcast(eventType, payload)
}

// Shutdown cancels in-flight suites, stops the watcher, and stops every
// capability that carries its own lifecycle.
func (o *Orchestrator) Shutdown() {
	logging.Info(subsystem, "Shutting down")
	o.runner.CancelAll()

	o.watchMu.Lock()
	agg := o.aggregator
	o.watchMu.Unlock()
	if agg != nil {
		agg.Stop()
	}
	o.watchWG.Wait()

	for _, c := range o.registry.All() {
		if s, ok := c.(stopper); ok {
			s.Stop()
		}
	}
}
