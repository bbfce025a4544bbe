package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/bridge"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/environments"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/notify"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/selector"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/watcher"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

// healthStream is implemented by capabilities that push asynchronous
// health observations, such as the environment monitor.
type healthStream interface {
	Updates() <-chan environments.Health
}

// cycleOutcome pairs one selection decision with the suite results it
// produced. Workflow steps that run suites record it as their value.
type cycleOutcome struct {
	Decision suite.Decision
	Results  []suite.Result
}

// StartWatching builds the change aggregator from configuration, starts
// it, and launches the loop that turns batches into test cycles. It
// returns the number of watched subtrees.
func (o *Orchestrator) StartWatching(ctx context.Context) (int, error) {
	o.watchMu.Lock()
	defer o.watchMu.Unlock()
	if o.aggregator != nil {
		return 0, fmt.Errorf("watch loop already running")
	}

	agg := watcher.New(watcher.Options{
		Root:           o.root,
		Paths:          o.cfg.Watcher.Paths,
		Extensions:     o.cfg.Watcher.Extensions,
		IgnorePatterns: o.cfg.Watcher.IgnorePatterns,
		Debounce:       o.cfg.Watcher.DebounceDelay,
	})
	if err := agg.Start(ctx); err != nil {
		return 0, err
	}
	o.aggregator = agg

	o.watchWG.Add(1)
	go o.watchLoop(ctx, agg)

	count := len(o.cfg.Watcher.Paths)
	if count == 0 {
		count = 1
	}
	return count, nil
}

// watchLoop serializes reactions to the outside world: change batches run
// one cycle at a time, git divergence is polled on its interval, and
// environment flips become notifications. A batch arriving while a cycle
// runs waits in the aggregator's buffer for its turn.
func (o *Orchestrator) watchLoop(ctx context.Context, agg *watcher.Aggregator) {
	defer o.watchWG.Done()

	var gitTick <-chan time.Time
	if o.cfg.Git.Enabled && o.cfg.Git.CheckInterval > 0 {
		ticker := time.NewTicker(o.cfg.Git.CheckInterval)
		defer ticker.Stop()
		gitTick = ticker.C
	}

	var envUpdates <-chan environments.Health
	if ec, ok := o.environmentChecker(); ok {
		if hs, ok := ec.(healthStream); ok {
			envUpdates = hs.Updates()
		}
	}

	lastBehind := 0
	for {
		select {
		case <-ctx.Done():
			return

		case batch, ok := <-agg.Batches():
			if !ok {
				return
			}
			if _, err := o.executeCycle(ctx, batch); err != nil {
				logging.Warn(subsystem, "Cycle for batch %s: %v", batch.ID, err)
			}
			o.InvalidateCache()

		case err := <-agg.Errors():
			logging.Warn(subsystem, "Watcher: %v", err)

		case <-gitTick:
			lastBehind = o.refreshGitStatus(ctx, lastBehind)

		case h, ok := <-envUpdates:
			if !ok {
				envUpdates = nil
				continue
			}
			if !h.Healthy {
				o.notifyOut(ctx, notify.Notification{
					Level: notify.LevelWarning,
					Title: fmt.Sprintf("Environment %s is unhealthy", h.Name),
					Body:  environmentDetail(h),
				})
			}
		}
	}
}

// executeCycle runs one full change-to-feedback pass: broadcast the batch,
// select suites against the current coverage picture, run them, fold
// coverage back in, and tell the developer how it went.
func (o *Orchestrator) executeCycle(ctx context.Context, batch watcher.ChangeBatch) (cycleOutcome, error) {
	o.broadcast(bridge.EventFileChanges, batch)

	decision := selector.Select(batch, o.cfg.Suites, o.currentSnapshot(), o.cfg.Coverage.PerFileThreshold)
	o.broadcast(bridge.EventSuiteDecision, decision)
	logging.Info(subsystem, "Selected %d suite(s): %s", len(decision.SuitesToRun), decision.Rationale)

	if decision.Empty() {
		return cycleOutcome{Decision: decision}, nil
	}

	results := o.runner.Run(ctx, decision.SuitesToRun, batch.Paths(), o.cfg.Coverage.Enabled)
	o.broadcast(bridge.EventSuiteResults, results)

	o.mergeCoverage(results)
	o.notifyResults(ctx, results)

	return cycleOutcome{Decision: decision, Results: results}, cycleError(results)
}

// refreshGitStatus polls branch divergence and warns when the branch has
// fallen behind its base. It returns the behind count so the caller only
// hears about each new divergence once.
func (o *Orchestrator) refreshGitStatus(ctx context.Context, prevBehind int) int {
	sc, ok := o.sourceControl()
	if !ok {
		return prevBehind
	}
	status, err := sc.Status(ctx)
	if err != nil {
		logging.Warn(subsystem, "Reading git status: %v", err)
		return prevBehind
	}
	if status.Behind > 0 && status.Behind != prevBehind {
		o.notifyOut(ctx, notify.Notification{
			Level: notify.LevelWarning,
			Title: fmt.Sprintf("Branch %s is %d commit(s) behind", status.Branch, status.Behind),
			Body:  "pull before your next test run to avoid stale results",
		})
	}
	return status.Behind
}

func (o *Orchestrator) notifyResults(ctx context.Context, results []suite.Result) {
	var failed, cancelled []string
	for _, r := range results {
		switch {
		case r.Cancelled:
			cancelled = append(cancelled, r.SuiteKind.Display())
		case !r.Succeeded:
			failed = append(failed, r.SuiteKind.Display())
		}
	}

	switch {
	case len(failed) > 0:
		o.notifyOut(ctx, notify.Notification{
			Level: notify.LevelError,
			Title: fmt.Sprintf("%d suite(s) failed", len(failed)),
			Body:  strings.Join(failed, ", "),
		})
	case len(cancelled) > 0:
		o.notifyOut(ctx, notify.Notification{
			Level: notify.LevelInfo,
			Title: "Test run superseded",
			Body:  strings.Join(cancelled, ", ") + " cancelled by newer changes",
		})
	default:
		o.notifyOut(ctx, notify.Notification{
			Level: notify.LevelSuccess,
			Title: fmt.Sprintf("All %d suite(s) passed", len(results)),
		})
	}
}

// cycleError reduces a result set to the error a workflow step should
// surface. Failures outrank cancellations; a fully green run is nil.
func cycleError(results []suite.Result) error {
	var failed []string
	cancelled := 0
	for _, r := range results {
		switch {
		case r.Cancelled:
			cancelled++
		case !r.Succeeded:
			failed = append(failed, string(r.SuiteKind))
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("suite(s) failed: %s", strings.Join(failed, ", "))
	}
	if cancelled > 0 {
		return fmt.Errorf("%d suite(s) cancelled before finishing", cancelled)
	}
	return nil
}

func environmentDetail(h environments.Health) string {
	if h.Err != "" {
		return h.Err
	}
	return fmt.Sprintf("%s answered %d", h.URL, h.StatusCode)
}
