// Package bridge exposes agent activity to IDE integrations over a
// loopback websocket. Connected editors receive three event kinds: change
// batches as they are observed, suite decisions as they are made, and suite
// results as they land. The agent never waits for a client; slow consumers
// are disconnected.
package bridge

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const subsystem = "Bridge"

// Event types broadcast to connected IDE clients.
const (
	EventFileChanges   = "file-changes"
	EventSuiteDecision = "suite-decision"
	EventSuiteResults  = "suite-results"
)

// DefaultPort is the listen port when the configuration does not set one.
const DefaultPort = 8765

// eventBuffer bounds the broadcast queue; excess events are dropped rather
// than stalling the watch loop.
const eventBuffer = 256

// Event is one message pushed to every connected client.
type Event struct {
	Type    string      `json:"type"`
	SentAt  time.Time   `json:"sentAt"`
	Payload interface{} `json:"payload,omitempty"`
}

// Server accepts IDE websocket connections on loopback and fans events out
// to them.
type Server struct {
	port     int
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	register   chan *client
	unregister chan *client
	events     chan Event
	done       chan struct{}

	addr        atomic.Value
	clientCount atomic.Int32
	running     atomic.Bool

	wg      sync.WaitGroup
	stopped bool
}

// New builds a bridge server. Port 0 picks an ephemeral port, which tests
// rely on.
func New(port int) *Server {
	s := &Server{
		port:       port,
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan Event, eventBuffer),
		done:       make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// The listener binds to loopback only, so any origin that can
		// reach it is a local process.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return s
}

// Name implements capability.Capability.
func (s *Server) Name() string { return "bridge" }

// Kind implements capability.Capability.
func (s *Server) Kind() capability.Kind { return capability.KindBridge }

// Ping reports whether the bridge is accepting connections.
func (s *Server) Ping(_ context.Context) error {
	if !s.running.Load() {
		return fmt.Errorf("bridge is not running")
	}
	return nil
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	if v := s.addr.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// ClientCount returns the number of connected IDE clients.
func (s *Server) ClientCount() int { return int(s.clientCount.Load()) }

// Start binds the loopback listener and launches the fan-out loop. The
// bind happens synchronously so a port conflict surfaces here.
func (s *Server) Start(_ context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("bridge already started")
	}
	if s.stopped {
		return fmt.Errorf("bridge cannot be restarted")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind bridge port %d: %w", s.port, err)
	}
	s.addr.Store(ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleConnection)
	s.httpSrv = &http.Server{Handler: mux}

	s.running.Store(true)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Error(subsystem, err, "Bridge listener failed")
		}
	}()
	go s.run()

	logging.Info(subsystem, "Listening for IDE clients on ws://%s/events", s.Addr())
	return nil
}

// Stop disconnects every client and shuts the listener down. Safe to call
// more than once.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	s.stopped = true

	close(s.done)
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			logging.Warn(subsystem, "Bridge shutdown did not finish cleanly: %v", err)
		}
	}
	s.wg.Wait()
}

// Broadcast queues an event for every connected client. Events are dropped
// when nobody can keep up; the bridge never blocks the caller.
func (s *Server) Broadcast(eventType string, payload interface{}) {
	if !s.running.Load() {
		return
	}
	select {
	case s.events <- Event{Type: eventType, SentAt: time.Now(), Payload: payload}:
	default:
		logging.Warn(subsystem, "Dropping %s event: broadcast queue full", eventType)
	}
}

// run owns the client set. Registration, removal, and fan-out all go
// through here, so the map needs no lock.
func (s *Server) run() {
	defer s.wg.Done()

	clients := make(map[*client]bool)
	defer func() {
		for c := range clients {
			close(c.send)
		}
		s.clientCount.Store(0)
	}()

	for {
		select {
		case c := <-s.register:
			clients[c] = true
			s.clientCount.Store(int32(len(clients)))
			logging.Debug(subsystem, "IDE client connected (%d total)", len(clients))

		case c := <-s.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
			}
			s.clientCount.Store(int32(len(clients)))

		case ev := <-s.events:
			for c := range clients {
				select {
				case c.send <- ev:
				default:
					delete(clients, c)
					close(c.send)
					logging.Warn(subsystem, "Disconnecting IDE client that stopped reading")
				}
			}
			s.clientCount.Store(int32(len(clients)))

		case <-s.done:
			return
		}
	}
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(subsystem, "Websocket upgrade failed: %v", err)
		return
	}

	c := newClient(s, conn)
	select {
	case s.register <- c:
	case <-s.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
