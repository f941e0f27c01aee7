package flow

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arendahub/miniapp-client/internal/backend"
	"github.com/arendahub/miniapp-client/internal/metrics"
)

// SessionConfig configures a Session.
type SessionConfig struct {
	Backend  *backend.Client
	Recorder *backend.Recorder
	Resolver *Resolver
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics

	// PollInterval overrides the poller period in tests.
	PollInterval time.Duration
}

// Session tracks the client-local navigation state for one page session:
// the current route, the boot resolution, and the waiting-page poller. A
// monotonically increasing mount generation guards against stale
// asynchronous results being applied after the user has navigated away.
type Session struct {
	backend  *backend.Client
	recorder *backend.Recorder
	resolver *Resolver
	log      zerolog.Logger
	metrics  *metrics.Metrics

	pollInterval time.Duration

	mu           sync.Mutex
	booted       bool
	route        string
	gen          uint64
	pollCancel   context.CancelFunc
	pollDone     chan struct{}
	lastStatus   string
	decidedRoute string
}

// NewSession creates a session starting at the entry page.
func NewSession(cfg SessionConfig) *Session {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = PollInterval
	}
	return &Session{
		backend:      cfg.Backend,
		recorder:     cfg.Recorder,
		resolver:     cfg.Resolver,
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
		pollInterval: interval,
		route:        RouteHome,
		lastStatus:   backend.StatusInProgress,
	}
}

// Boot resolves the initial placement exactly once per session and returns
// the route the client should show. Later calls return the current route.
func (s *Session) Boot(ctx context.Context) string {
	s.mu.Lock()
	if s.booted {
		route := s.route
		s.mu.Unlock()
		return route
	}
	s.mu.Unlock()

	route := s.resolver.Resolve(ctx)

	s.mu.Lock()
	if !s.booted {
		s.booted = true
		s.route = route
	}
	route = s.route
	s.mu.Unlock()
	return route
}

// Enter marks a page mount. Re-rendering the current page is not a new
// mount; an actual navigation bumps the generation and, when it leaves the
// waiting page, cancels the poller so no timer survives the teardown.
func (s *Session) Enter(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	route := st.Route()
	if s.route == route {
		return
	}
	s.gen++
	s.route = route
	s.decidedRoute = ""
	if st != StateWaiting {
		s.stopPollingLocked()
	}
}

// Apply performs a named transition: the local route moves optimistically,
// then the new state is asserted at the backend. The returned boolean is
// the backend assertion result.
func (s *Session) Apply(ctx context.Context, t Transition) bool {
	s.Enter(t.Target())
	return s.backend.SetState(ctx, string(t.Target()))
}

// EnsurePolling starts the status poller for the current waiting mount if
// one is not already running. The poller's results apply only while the
// mount generation is unchanged; anything arriving later is discarded.
func (s *Session) EnsurePolling() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pollCancel != nil {
		return
	}

	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.pollCancel = cancel
	s.pollDone = done

	poller := NewPoller(PollerConfig{
		Backend:  s.backend,
		Recorder: s.recorder,
		Logger:   s.log,
		Metrics:  s.metrics,
		Interval: s.pollInterval,
		OnStatus: func(status string) {
			s.mu.Lock()
			if s.gen == gen {
				s.lastStatus = status
			}
			s.mu.Unlock()
		},
		OnDecision: func(t Transition) {
			s.mu.Lock()
			if s.gen == gen {
				s.decidedRoute = t.Target().Route()
				s.route = s.decidedRoute
			}
			s.mu.Unlock()
		},
	})

	go func() {
		defer close(done)
		defer cancel()
		poller.Run(ctx)
	}()
}

// Route returns the current client-local route.
func (s *Session) Route() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// LastStatus returns the last review status the poller observed.
func (s *Session) LastStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus
}

// Decided returns the route of a terminal review decision, or "" while the
// review is still open.
func (s *Session) Decided() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decidedRoute
}

// Close cancels any running poller and waits for it to stop.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopPollingLocked()
	done := s.pollDone
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Session) stopPollingLocked() {
	if s.pollCancel != nil {
		s.pollCancel()
		s.pollCancel = nil
	}
}
