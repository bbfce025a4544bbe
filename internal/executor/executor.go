// Package executor runs selected test suites as shell commands with
// fan-out concurrency, uniform failure classification and group-wide
// cancellation.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/coverage"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/suite"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const subsystem = "Executor"

// gracePeriod is how long a cancelled or timed-out suite gets to shut
// down before its whole process group is killed.
const gracePeriod = 10 * time.Second

// Executor launches suite commands in the project directory. All suites
// of one Run start together and the call returns only when every one of
// them has finished; a failing suite never interrupts its siblings.
type Executor struct {
	workDir string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New creates an Executor rooted at the given working directory.
func New(workDir string) *Executor {
	return &Executor{
		workDir: workDir,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Run executes every definition concurrently and returns one Result per
// definition, in input order, after the slowest suite completes. When
// collectCoverage is set, suites that declare a coverage command run
// that instead of their plain command and their output is scanned for
// coverage data.
func (e *Executor) Run(ctx context.Context, defs []suite.Definition, triggeringPaths []string, collectCoverage bool) []suite.Result {
	if len(defs) == 0 {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	runID := uuid.New().String()
	e.mu.Lock()
	e.cancels[runID] = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.cancels, runID)
		e.mu.Unlock()
	}()

	logging.Info(subsystem, "Run %s: launching %d suite(s)", runID, len(defs))

	results := make([]suite.Result, len(defs))
	var wg sync.WaitGroup
	for i, def := range defs {
		wg.Add(1)
		go func(i int, def suite.Definition) {
			defer wg.Done()
			results[i] = e.runSuite(runCtx, def, triggeringPaths, collectCoverage)
		}(i, def)
	}
	wg.Wait()

	return results
}

// CancelAll aborts every suite currently in flight, across all active
// runs. In-flight suites complete as cancelled results; their output is
// not processed further.
func (e *Executor) CancelAll() {
	e.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(e.cancels))
	for _, c := range e.cancels {
		cancels = append(cancels, c)
	}
	e.mu.Unlock()

	if len(cancels) > 0 {
		logging.Info(subsystem, "Cancelling %d active run(s)", len(cancels))
	}
	for _, c := range cancels {
		c()
	}
}

func (e *Executor) runSuite(ctx context.Context, def suite.Definition, triggeringPaths []string, collectCoverage bool) suite.Result {
	result := suite.Result{
		SuiteKind:       def.Kind,
		TriggeringPaths: triggeringPaths,
	}

	command := def.RunCommand
	withCoverage := collectCoverage && def.HasCoverage()
	if withCoverage {
		command = def.CoverageCommand
	}

	suiteCtx := ctx
	if def.Timeout > 0 {
		var cancel context.CancelFunc
		suiteCtx, cancel = context.WithTimeout(ctx, def.Timeout)
		defer cancel()
	}

	logging.Info(subsystem, "Suite %s: %s", def.Kind, command)
	start := time.Now()
	out, runErr := e.execute(suiteCtx, def, command)
	result.Duration = time.Since(start)
	result.RawOutput = out

	switch {
	case ctx.Err() != nil:
		// The run itself was cancelled, either by CancelAll or by the
		// caller's context going away.
		result.Cancelled = true
		result.RawOutput = appendMarker(out, "suite cancelled before completion")
		logging.Info(subsystem, "Suite %s cancelled after %s", def.Kind, result.Duration.Round(time.Millisecond))
		return result

	case errors.Is(suiteCtx.Err(), context.DeadlineExceeded):
		result.RawOutput = appendMarker(out, fmt.Sprintf("suite timed out after %s", def.Timeout))
		logging.Warn(subsystem, "Suite %s hit its %s watchdog", def.Kind, def.Timeout)

	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			logging.Warn(subsystem, "Suite %s failed with exit code %d", def.Kind, exitErr.ExitCode())
		} else {
			// The command never ran: missing shell, bad working
			// directory, fork failure. Normalized into the same shape
			// as an ordinary test failure.
			result.RawOutput = appendMarker(out, fmt.Sprintf("failed to start suite command: %v", runErr))
			logging.Error(subsystem, runErr, "Suite %s could not be started", def.Kind)
		}

	default:
		result.Succeeded = true
		logging.Info(subsystem, "Suite %s passed in %s", def.Kind, result.Duration.Round(time.Millisecond))
	}

	if withCoverage && !result.Cancelled {
		result.Coverage = coverage.Parse(out, def.Kind.CoverageFormats()...)
	}

	return result
}

// execute runs the command under sh in its own process group and
// captures combined output. On cancellation the group first gets a
// SIGTERM; whatever survives the grace period is killed.
func (e *Executor) execute(ctx context.Context, def suite.Definition, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.workDir
	cmd.Env = append(os.Environ(), def.Kind.ExtraEnv()...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return terminateProcessGroup(cmd) }
	cmd.WaitDelay = gracePeriod

	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		// Best effort: orphaned grandchildren (watchers, dev servers)
		// die with the group.
		_ = forceKillProcessGroup(cmd)
	}
	return string(out), err
}

func appendMarker(out, marker string) string {
	if out == "" {
		return marker
	}
	return out + "\n" + marker
}
