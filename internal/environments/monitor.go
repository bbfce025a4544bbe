// Package environments polls deployed environments over HTTP and keeps the
// latest health observation per environment. The health-check workflow reads
// one-shot results; the watch loop consumes the update stream.
package environments

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const subsystem = "Environments"

// DefaultInterval is the poll cadence for targets that do not set one.
const DefaultInterval = 5 * time.Minute

const probeTimeout = 10 * time.Second

// updateBuffer bounds the update stream; a slow consumer loses old
// observations rather than stalling the pollers.
const updateBuffer = 16

// Health is one observation of a deployed environment.
type Health struct {
	Name       string        `json:"name"`
	URL        string        `json:"url"`
	Healthy    bool          `json:"healthy"`
	StatusCode int           `json:"statusCode,omitempty"`
	Latency    time.Duration `json:"latency"`
	CheckedAt  time.Time     `json:"checkedAt"`
	Err        string        `json:"error,omitempty"`
}

// Monitor polls a fixed set of environment targets.
type Monitor struct {
	targets []config.EnvironmentTarget
	http    *retryablehttp.Client

	mu     sync.RWMutex
	latest map[string]Health

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	updates chan Health
	stopped bool
}

// New builds a monitor for the given targets. Polling does not start until
// Start is called; Check works without it.
func New(targets []config.EnvironmentTarget) *Monitor {
	rc := retryablehttp.NewClient()
	// A health probe reports what it saw; retrying would hide flapping.
	rc.RetryMax = 0
	rc.HTTPClient.Timeout = probeTimeout
	rc.Logger = nil

	return &Monitor{
		targets: targets,
		http:    rc,
		latest:  make(map[string]Health),
		updates: make(chan Health, updateBuffer),
	}
}

// Name implements capability.Capability.
func (m *Monitor) Name() string { return "environments" }

// Kind implements capability.Capability.
func (m *Monitor) Kind() capability.Kind { return capability.KindEnvironments }

// Ping verifies every target URL is well formed without touching the network.
func (m *Monitor) Ping(_ context.Context) error {
	if len(m.targets) == 0 {
		return fmt.Errorf("no environment targets configured")
	}
	for _, target := range m.targets {
		parsed, err := url.Parse(target.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("environment %s has an invalid url %q", target.Name, target.URL)
		}
	}
	return nil
}

// Check polls every target once, concurrently, and returns the observations
// in target order.
func (m *Monitor) Check(ctx context.Context) []Health {
	results := make([]Health, len(m.targets))

	var wg sync.WaitGroup
	for i, target := range m.targets {
		wg.Add(1)
		go func(i int, target config.EnvironmentTarget) {
			defer wg.Done()
			results[i] = m.probe(ctx, target)
		}(i, target)
	}
	wg.Wait()

	m.mu.Lock()
	for _, h := range results {
		m.latest[h.Name] = h
	}
	m.mu.Unlock()

	return results
}

// Start launches one poll loop per target. Each loop probes immediately and
// then on the target's interval until the context is cancelled or Stop is
// called.
func (m *Monitor) Start(ctx context.Context) error {
	if m.cancel != nil {
		return fmt.Errorf("environment monitor already started")
	}
	if m.stopped {
		return fmt.Errorf("environment monitor cannot be restarted")
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	for _, target := range m.targets {
		m.wg.Add(1)
		go m.pollLoop(ctx, target)
	}
	logging.Info(subsystem, "Polling %d environment(s)", len(m.targets))
	return nil
}

// Stop halts the poll loops and closes the update stream. Safe to call more
// than once.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	m.stopped = true
	m.wg.Wait()
	close(m.updates)
}

// Updates streams fresh observations from the poll loops.
func (m *Monitor) Updates() <-chan Health { return m.updates }

// Latest returns the most recent observation per target, in target order.
// Targets never probed are absent.
func (m *Monitor) Latest() []Health {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Health, 0, len(m.latest))
	for _, target := range m.targets {
		if h, ok := m.latest[target.Name]; ok {
			out = append(out, h)
		}
	}
	return out
}

func (m *Monitor) pollLoop(ctx context.Context, target config.EnvironmentTarget) {
	defer m.wg.Done()

	interval := target.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.record(ctx, target)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.record(ctx, target)
		}
	}
}

func (m *Monitor) record(ctx context.Context, target config.EnvironmentTarget) {
	h := m.probe(ctx, target)

	m.mu.Lock()
	previous, seen := m.latest[target.Name]
	m.latest[target.Name] = h
	m.mu.Unlock()

	if seen && previous.Healthy != h.Healthy {
		logging.Warn(subsystem, "Environment %s flipped to healthy=%t", target.Name, h.Healthy)
	}

	select {
	case m.updates <- h:
	default:
	}
}

// probe issues one GET against the target. Anything below 400 counts as
// healthy.
func (m *Monitor) probe(ctx context.Context, target config.EnvironmentTarget) Health {
	h := Health{Name: target.Name, URL: target.URL, CheckedAt: time.Now()}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		h.Err = err.Error()
		return h
	}

	started := time.Now()
	resp, err := m.http.Do(req)
	h.Latency = time.Since(started)
	if err != nil {
		h.Err = err.Error()
		logging.Debug(subsystem, "Probe of %s failed: %v", target.Name, err)
		return h
	}
	defer resp.Body.Close()

	h.StatusCode = resp.StatusCode
	h.Healthy = resp.StatusCode < http.StatusBadRequest
	return h
}
