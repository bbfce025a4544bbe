// Package notify delivers run outcomes to the developer. The console sink
// renders styled terminal lines; the Slack sink forwards the important ones
// to a webhook. Delivery is fire-and-forget: the caller never depends on a
// notification arriving.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const subsystem = "Notify"

// Level grades a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ParseLevel maps a configured level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelInfo, LevelSuccess, LevelWarning, LevelError:
		return Level(s), nil
	case "":
		return LevelWarning, nil
	default:
		return "", fmt.Errorf("unknown notification level %q", s)
	}
}

// severity orders levels for minimum-level filtering. Success ranks with
// info: good news is not worth paging an external channel for.
func (l Level) severity() int {
	switch l {
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

// Notification is one message bound for the developer.
type Notification struct {
	Level Level  `json:"level"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// Sink delivers notifications somewhere.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// pinger is implemented by sinks that can cheaply verify their own setup.
type pinger interface {
	Ping(ctx context.Context) error
}

// Multi fans a notification out to every configured sink. A sink failing
// does not stop delivery to the others.
type Multi struct {
	sinks []Sink
}

// NewMulti builds a fan-out over the given sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// FromConfig assembles the sinks the settings enable.
func FromConfig(settings config.NotificationSettings) (*Multi, error) {
	minLevel, err := ParseLevel(settings.MinLevel)
	if err != nil {
		return nil, err
	}

	var sinks []Sink
	if settings.Console {
		sinks = append(sinks, NewConsole(nil))
	}
	if settings.SlackWebhook != "" {
		sinks = append(sinks, NewSlack(settings.SlackWebhook, settings.SlackChannel, minLevel, settings.RatePerMin))
	}
	return NewMulti(sinks...), nil
}

// Send delivers the notification to every sink, collecting failures rather
// than short-circuiting on the first one.
func (m *Multi) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Send(ctx, n); err != nil {
			logging.Warn(subsystem, "Notification delivery failed: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Name implements capability.Capability.
func (m *Multi) Name() string { return "notifications" }

// Kind implements capability.Capability.
func (m *Multi) Kind() capability.Kind { return capability.KindNotifications }

// Ping checks every sink that knows how to check itself.
func (m *Multi) Ping(ctx context.Context) error {
	var errs []error
	for _, sink := range m.sinks {
		if p, ok := sink.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
