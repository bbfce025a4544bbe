package environments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
)

func TestCheck_ReturnsObservationsInTargetOrder(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	degraded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer degraded.Close()

	monitor := New([]config.EnvironmentTarget{
		{Name: "staging", URL: healthy.URL},
		{Name: "production", URL: degraded.URL},
	})

	results := monitor.Check(context.Background())
	require.Len(t, results, 2)

	assert.Equal(t, "staging", results[0].Name)
	assert.True(t, results[0].Healthy)
	assert.Equal(t, http.StatusOK, results[0].StatusCode)

	assert.Equal(t, "production", results[1].Name)
	assert.False(t, results[1].Healthy)
	assert.Equal(t, http.StatusServiceUnavailable, results[1].StatusCode)
}

func TestCheck_UnreachableTargetReportsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close()

	monitor := New([]config.EnvironmentTarget{{Name: "dead", URL: srv.URL}})
	results := monitor.Check(context.Background())

	require.Len(t, results, 1)
	assert.False(t, results[0].Healthy)
	assert.NotEmpty(t, results[0].Err)
}

func TestStart_PollsOnInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	monitor := New([]config.EnvironmentTarget{
		{Name: "staging", URL: srv.URL, Interval: 50 * time.Millisecond},
	})
	require.NoError(t, monitor.Start(context.Background()))
	defer monitor.Stop()

	seen := 0
	deadline := time.After(3 * time.Second)
	for seen < 2 {
		select {
		case h := <-monitor.Updates():
			assert.Equal(t, "staging", h.Name)
			assert.True(t, h.Healthy)
			seen++
		case <-deadline:
			t.Fatalf("saw %d update(s) before the deadline", seen)
		}
	}

	latest := monitor.Latest()
	require.Len(t, latest, 1)
	assert.True(t, latest[0].Healthy)
}

func TestStart_DoubleStartRejected(t *testing.T) {
	monitor := New(nil)
	require.NoError(t, monitor.Start(context.Background()))
	assert.Error(t, monitor.Start(context.Background()))
	monitor.Stop()
}

func TestStop_IsIdempotentAndFinal(t *testing.T) {
	monitor := New(nil)
	require.NoError(t, monitor.Start(context.Background()))

	monitor.Stop()
	monitor.Stop()

	_, open := <-monitor.Updates()
	assert.False(t, open)
	assert.Error(t, monitor.Start(context.Background()))
}

func TestPing(t *testing.T) {
	monitor := New([]config.EnvironmentTarget{{Name: "staging", URL: "https://staging.example.com/health"}})
	assert.NoError(t, monitor.Ping(context.Background()))

	empty := New(nil)
	assert.Error(t, empty.Ping(context.Background()))

	malformed := New([]config.EnvironmentTarget{{Name: "bad", URL: "not a url"}})
	assert.Error(t, malformed.Ping(context.Background()))

	assert.Equal(t, "environments", monitor.Name())
	assert.Equal(t, capability.KindEnvironments, monitor.Kind())
}
