package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/coverage"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/notify"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/watcher"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

// DeveloperSetup prepares a watch session: it reports the configuration,
// loads the coverage snapshot, starts the watcher (critical) alongside the
// background services, then verifies collaborators and announces readiness.
func (o *Orchestrator) DeveloperSetup(ctx context.Context) WorkflowResult {
	started := time.Now()
	result := newWorkflowResult("developer-setup")
	var criticalFailed []string
	total := 0

	first := []step{
		{name: "configuration", fn: o.stepConfiguration},
		{name: "coverage-snapshot", fn: o.stepLoadSnapshot},
	}
	o.runPhase(ctx, first, &result, &criticalFailed)
	total += len(first)

	second := []step{
		{name: "watcher", critical: true, fn: o.stepStartWatching},
		{name: "services", fn: o.stepStartServices},
	}
	o.runPhase(ctx, second, &result, &criticalFailed)
	total += len(second)

	third := []step{
		{name: "collaborators", fn: o.stepPingCollaborators},
		{name: "welcome", fn: o.stepWelcome},
	}
	o.runPhase(ctx, third, &result, &criticalFailed)
	total += len(third)

	return o.finish(result, started, criticalFailed, total)
}

// PreCommit validates the working tree before a commit: it runs the suites
// relevant to the uncommitted changes (critical) and, alongside them,
// checks ticket state, pending review feedback, and complexity drift.
func (o *Orchestrator) PreCommit(ctx context.Context) WorkflowResult {
	started := time.Now()
	result := newWorkflowResult("pre-commit")
	var criticalFailed []string
	total := 0

	changedStep := step{name: "changed-files", cached: true, fn: o.stepChangedFiles}
	o.runPhase(ctx, []step{changedStep}, &result, &criticalFailed)
	total++

	changed, _ := result.Results["changed-files"].([]string)
	_, changedFailed := result.Errors["changed-files"]

	phase := []step{
		{name: "suites", critical: true, fn: o.suitesStepFor(changed, changedFailed)},
		{name: "ticket", cached: true, fn: o.stepTicketStatus},
		{name: "review", cached: true, fn: o.stepReviewSignals},
		{name: "complexity", fn: o.complexityStepFor(changed, changedFailed)},
	}
	o.runPhase(ctx, phase, &result, &criticalFailed)
	total += len(phase)

	return o.finish(result, started, criticalFailed, total)
}

// HealthCheck reports the project's standing without side effects: branch
// divergence, coverage against thresholds, collaborator reachability, and
// deployed environment health. No step is critical; the caller inspects
// the recorded errors to gauge severity.
func (o *Orchestrator) HealthCheck(ctx context.Context) WorkflowResult {
	started := time.Now()
	result := newWorkflowResult("health-check")
	var criticalFailed []string

	phase := []step{
		{name: "git-status", cached: true, fn: o.stepGitStatus},
		{name: "coverage", fn: o.stepCoverageHealth},
		{name: "collaborators", fn: o.stepPingCollaborators},
		{name: "environments", fn: o.stepEnvironmentHealth},
	}
	o.runPhase(ctx, phase, &result, &criticalFailed)

	return o.finish(result, started, criticalFailed, len(phase))
}

// RunSuiteFor runs the suites relevant to an explicit file list, as if
// those files had just changed.
func (o *Orchestrator) RunSuiteFor(ctx context.Context, files []string) WorkflowResult {
	started := time.Now()
	result := newWorkflowResult("run-suite")
	var criticalFailed []string

	runStep := step{name: "suites", critical: true, fn: func(ctx context.Context) (interface{}, error) {
		if len(files) == 0 {
			return nil, fmt.Errorf("no files given")
		}
		return o.executeCycle(ctx, watcher.BatchOf(files...))
	}}
	o.runPhase(ctx, []step{runStep}, &result, &criticalFailed)

	return o.finish(result, started, criticalFailed, 1)
}

func (o *Orchestrator) finish(result WorkflowResult, started time.Time, criticalFailed []string, total int) WorkflowResult {
	result.Duration = time.Since(started)
	result.Summary = summarize(result, criticalFailed, total)
	logging.Info(subsystem, "Workflow %s finished in %s: %s",
		result.Workflow, result.Duration.Round(time.Millisecond), result.Summary)
	return result
}

// Step implementations.

func (o *Orchestrator) stepConfiguration(_ context.Context) (interface{}, error) {
	enabled := 0
	for _, d := range o.cfg.Suites {
		if d.Enabled {
			enabled++
		}
	}
	name := o.cfg.Project.Name
	if name == "" {
		name = filepath.Base(o.root)
	}
	return fmt.Sprintf("project %s: %d of %d suite(s) enabled", name, enabled, len(o.cfg.Suites)), nil
}

func (o *Orchestrator) stepLoadSnapshot(_ context.Context) (interface{}, error) {
	snap := o.currentSnapshot()
	if snap == nil || !snap.HasData() {
		return "no coverage snapshot yet", nil
	}
	return fmt.Sprintf("coverage for %d file(s), %.1f%% lines", len(snap.Files), snap.Lines.Percentage), nil
}

func (o *Orchestrator) stepStartWatching(ctx context.Context) (interface{}, error) {
	count, err := o.StartWatching(ctx)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("watching %d subtree(s) under %s", count, o.root), nil
}

func (o *Orchestrator) stepStartServices(ctx context.Context) (interface{}, error) {
	var started, failures []string
	for _, c := range o.registry.All() {
		s, ok := c.(starter)
		if !ok {
			continue
		}
		if err := s.Start(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", c.Name(), err))
			continue
		}
		started = append(started, c.Name())
	}
	sort.Strings(started)

	value := "no background services configured"
	if len(started) > 0 {
		value = "started " + strings.Join(started, ", ")
	}
	if len(failures) > 0 {
		sort.Strings(failures)
		return value, fmt.Errorf("failed to start %s", strings.Join(failures, "; "))
	}
	return value, nil
}

func (o *Orchestrator) stepPingCollaborators(ctx context.Context) (interface{}, error) {
	caps := o.registry.All()
	if len(caps) == 0 {
		return "no collaborators registered", nil
	}

	statuses := make(map[string]string, len(caps))
	var unreachable []string
	for _, c := range caps {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := c.Ping(pingCtx)
		cancel()
		if err != nil {
			statuses[c.Name()] = err.Error()
			unreachable = append(unreachable, c.Name())
			continue
		}
		statuses[c.Name()] = "ok"
	}

	if len(unreachable) > 0 {
		sort.Strings(unreachable)
		return statuses, fmt.Errorf("%d collaborator(s) unreachable: %s", len(unreachable), strings.Join(unreachable, ", "))
	}
	return statuses, nil
}

func (o *Orchestrator) stepWelcome(ctx context.Context) (interface{}, error) {
	o.notifyOut(ctx, notify.Notification{
		Level: notify.LevelInfo,
		Title: "testagent is watching for changes",
		Body:  "project root: " + o.root,
	})
	return "ready", nil
}

func (o *Orchestrator) stepChangedFiles(ctx context.Context) (interface{}, error) {
	sc, ok := o.sourceControl()
	if !ok {
		return nil, fmt.Errorf("source control is not configured")
	}
	changes, err := sc.Changes(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path)
	}
	return paths, nil
}

func (o *Orchestrator) suitesStepFor(changed []string, changedFailed bool) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		if changedFailed {
			return nil, fmt.Errorf("cannot select suites: changed files unknown")
		}
		if len(changed) == 0 {
			return "working tree is clean; no suites to run", nil
		}
		return o.executeCycle(ctx, watcher.BatchOf(changed...))
	}
}

func (o *Orchestrator) stepTicketStatus(ctx context.Context) (interface{}, error) {
	ts, ok := o.ticketSource()
	if !ok {
		return "issue tracker not configured", nil
	}
	key, err := ts.TicketForCurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return "no ticket referenced by the current branch", nil
	}
	concerns, err := ts.TicketIssues(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(concerns) > 0 {
		return concerns, fmt.Errorf("ticket %s has %d concern(s)", key, len(concerns))
	}
	return fmt.Sprintf("ticket %s looks ready", key), nil
}

func (o *Orchestrator) stepReviewSignals(ctx context.Context) (interface{}, error) {
	rs, ok := o.reviewSource()
	if !ok {
		return "code review not configured", nil
	}
	signals, err := rs.PendingReviewSignals(ctx)
	if err != nil {
		return nil, err
	}
	if n := len(signals.RequestedChanges); n > 0 {
		return signals, fmt.Errorf("%d requested change(s) pending", n)
	}
	if signals.Empty() {
		return "no pending review feedback", nil
	}
	return signals, nil
}

func (o *Orchestrator) complexityStepFor(changed []string, changedFailed bool) func(context.Context) (interface{}, error) {
	return func(_ context.Context) (interface{}, error) {
		cs, ok := o.complexityScorer()
		if !ok {
			return "complexity scoring not configured", nil
		}
		if changedFailed {
			return nil, fmt.Errorf("skipped: changed files unknown")
		}
		code := filterByExtension(changed, o.cfg.Watcher.Extensions)
		if len(code) == 0 {
			return "no scored file types changed", nil
		}

		report := cs.ScoreFiles(code)
		baseline, err := cs.LoadBaseline()
		if err != nil {
			logging.Warn(subsystem, "Comparing complexity without a baseline: %v", err)
		}
		deltas := cs.Compare(report, baseline)

		var risers []string
		for _, d := range deltas {
			if d.Increase() > 0 && d.Current >= cs.WarnThreshold() {
				risers = append(risers, d.Path)
			}
		}
		if len(risers) > 0 {
			return deltas, fmt.Errorf("complexity rose past %.0f in: %s", cs.WarnThreshold(), strings.Join(risers, ", "))
		}
		if len(deltas) == 0 {
			return "complexity unchanged", nil
		}
		return deltas, nil
	}
}

func (o *Orchestrator) stepGitStatus(ctx context.Context) (interface{}, error) {
	sc, ok := o.sourceControl()
	if !ok {
		return "source control not configured", nil
	}
	status, err := sc.Status(ctx)
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("on %s, %d ahead / %d behind", status.Branch, status.Ahead, status.Behind)
	if n := len(status.Changes); n > 0 {
		desc += fmt.Sprintf(", %d uncommitted change(s)", n)
	}
	return desc, nil
}

func (o *Orchestrator) stepCoverageHealth(_ context.Context) (interface{}, error) {
	if !o.cfg.Coverage.Enabled {
		return "coverage tracking disabled", nil
	}
	snap := o.currentSnapshot()
	if snap == nil || !snap.HasData() {
		return "no coverage data recorded yet", nil
	}

	linePct := snap.Lines.Percentage
	value := fmt.Sprintf("%.1f%% line coverage across %d file(s)", linePct, len(snap.Files))
	if low := coverage.LowCoverageFiles(snap, o.cfg.Coverage.PerFileThreshold); len(low) > 0 {
		value += fmt.Sprintf(", %d below %.0f%%", len(low), o.cfg.Coverage.PerFileThreshold)
	}

	if threshold := o.cfg.Coverage.GlobalThreshold; threshold > 0 && linePct < threshold {
		return value, fmt.Errorf("line coverage %.1f%% is below the %.1f%% threshold", linePct, threshold)
	}
	return value, nil
}

func (o *Orchestrator) stepEnvironmentHealth(ctx context.Context) (interface{}, error) {
	ec, ok := o.environmentChecker()
	if !ok {
		return "no environments configured", nil
	}
	healths := ec.Check(ctx)
	if len(healths) == 0 {
		return "no environments configured", nil
	}

	var down []string
	for _, h := range healths {
		if !h.Healthy {
			down = append(down, h.Name)
		}
	}
	if len(down) > 0 {
		sort.Strings(down)
		return healths, fmt.Errorf("%d environment(s) unhealthy: %s", len(down), strings.Join(down, ", "))
	}
	return healths, nil
}

func filterByExtension(paths, extensions []string) []string {
	if len(extensions) == 0 {
		return paths
	}
	var out []string
	for _, p := range paths {
		ext := filepath.Ext(p)
		for _, e := range extensions {
			if strings.EqualFold(ext, e) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
