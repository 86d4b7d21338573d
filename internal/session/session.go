// Package session supervises encoder subprocesses: one Session per running
// capture-encode-publish binding, tracked in a concurrency-safe Registry.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avhost/castnode/internal/metrics"
	"github.com/avhost/castnode/internal/plan"
)

const (
	// DefaultGraceWindow is how long a spawned subprocess must survive
	// before the session counts as Running. Many encoder failures (bad
	// device, bad permissions) surface as an immediate exit, so spawn
	// success alone proves nothing.
	DefaultGraceWindow = 500 * time.Millisecond

	// DefaultStopTimeout bounds the graceful stop before escalating to a
	// forced kill.
	DefaultStopTimeout = 3 * time.Second
)

// Session is one active binding of a capture source to a publish sink,
// backed by one subprocess. The Session exclusively owns its process
// handle; all interaction goes through the Registry.
type Session struct {
	ID      uuid.UUID
	Request plan.Request
	Plan    plan.Plan

	graceWindow  time.Duration
	stopTimeout  time.Duration
	logger       *slog.Logger
	onTransition func(s *Session, old, new State)

	mu            sync.Mutex
	state         State
	startedAt     time.Time
	lastError     string
	exitCode      int
	stopRequested bool
	forced        bool
	pending       []transition

	// notifyMu serializes transition dispatch so observers never see two
	// transitions of one session out of order.
	notifyMu sync.Mutex

	run  *runner
	done chan struct{}
}

// transition is one queued state change awaiting dispatch.
type transition struct {
	from State
	to   State
}

func newSession(id uuid.UUID, req plan.Request, p plan.Plan, run *runner,
	grace, stopTimeout time.Duration, logger *slog.Logger,
	onTransition func(s *Session, old, new State)) *Session {
	return &Session{
		ID:           id,
		Request:      req,
		Plan:         p,
		graceWindow:  grace,
		stopTimeout:  stopTimeout,
		logger:       logger,
		onTransition: onTransition,
		run:          run,
		done:         make(chan struct{}),
	}
}

// Key returns the uniqueness key: one active session per (source, sink).
func (s *Session) Key() string {
	return s.Request.Source.Key() + "|" + s.Request.Sink
}

// start spawns the subprocess and begins supervision. A spawn failure
// leaves the session in Idle; the caller removes it from the registry.
func (s *Session) start() error {
	if err := s.run.start(); err != nil {
		return err
	}

	s.mu.Lock()
	s.startedAt = time.Now()
	s.state = Starting
	s.pending = append(s.pending, transition{Idle, Starting})
	s.mu.Unlock()
	s.dispatch()

	go s.supervise()
	return nil
}

// supervise waits out the grace window, promotes the session to Running if
// the subprocess is still alive, and classifies the eventual exit.
func (s *Session) supervise() {
	grace := time.NewTimer(s.graceWindow)
	defer grace.Stop()

	select {
	case err := <-s.run.wait():
		// Exited inside the grace window: a crash unless a stop already
		// arrived.
		s.handleExit(err)
		return
	case <-grace.C:
	}

	s.mu.Lock()
	promoted := s.state == Starting
	if promoted {
		s.state = Running
		s.pending = append(s.pending, transition{Starting, Running})
	}
	s.mu.Unlock()
	if promoted {
		s.dispatch()
	}

	s.handleExit(<-s.run.wait())
}

// handleExit performs the single terminal transition for the session.
// A stop-induced exit is Terminated; a self-exit is Crashed regardless of
// exit code - intent decides, not the code.
func (s *Session) handleExit(waitErr error) {
	exitCode := exitCodeFromError(waitErr)

	s.mu.Lock()
	old := s.state
	s.exitCode = exitCode
	if s.stopRequested {
		s.state = Terminated
	} else {
		s.state = Crashed
		s.lastError = s.run.lastLines()
		if s.lastError == "" {
			s.lastError = fmt.Sprintf("encoder exited with code %d", exitCode)
		}
	}
	newState := s.state
	s.pending = append(s.pending, transition{old, newState})
	s.mu.Unlock()

	if newState == Crashed {
		s.logger.Error("Encoder crashed",
			"session_id", s.ID,
			"code", ErrCodeEncoderCrashed,
			"exit_code", exitCode)
	} else {
		s.logger.Info("Encoder stopped", "session_id", s.ID, "exit_code", exitCode)
	}

	s.dispatch()
	close(s.done)
}

// requestStop claims the stop for the calling goroutine. Exactly one
// caller gets true; later callers see the session as already stopping or
// gone.
func (s *Session) requestStop() bool {
	s.mu.Lock()
	if s.state.Terminal() || s.stopRequested {
		s.mu.Unlock()
		return false
	}
	s.stopRequested = true
	old := s.state
	s.state = Stopping
	s.pending = append(s.pending, transition{old, Stopping})
	s.mu.Unlock()
	s.dispatch()
	return true
}

// stop signals a graceful shutdown, escalating to a forced kill after the
// stop timeout. The timeout is logged, not surfaced: the end state (process
// gone) is reached either way. Call requestStop first.
func (s *Session) stop() {
	s.run.signalStop()

	select {
	case <-s.done:
	case <-time.After(s.stopTimeout):
		s.logger.Warn("Stop timeout, escalating to kill",
			"session_id", s.ID,
			"code", ErrCodeStopTimeout,
			"timeout", s.stopTimeout,
			"pid", s.run.pid())
		metrics.IncStopEscalations()
		s.mu.Lock()
		s.forced = true
		s.mu.Unlock()
		s.run.kill()
		<-s.done
	}
}

// dispatch drains queued transitions in FIFO order. Transitions are
// enqueued under s.mu at the point the state changes, so queue order is
// state-mutation order; notifyMu keeps two goroutines that raced to the
// queue from publishing each other's transitions out of order.
func (s *Session) dispatch() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		if s.onTransition != nil {
			s.onTransition(s, next.from, next.to)
		}
	}
}

// Snapshot is an immutable point-in-time view of a session. Callers never
// see the live Session, so they cannot race with supervisor-internal
// mutation.
type Snapshot struct {
	ID           uuid.UUID    `json:"id"`
	SourceKey    string       `json:"source_key"`
	Sink         string       `json:"sink"`
	Quality      plan.Quality `json:"quality"`
	State        string       `json:"state"`
	StartedAt    time.Time    `json:"started_at"`
	FrameRate    float64      `json:"frame_rate"`
	BitrateKbps  int          `json:"bitrate_kbps"`
	UsedFallback bool         `json:"used_fallback,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
	ExitCode     int          `json:"exit_code,omitempty"`
}

// snapshot copies the session's current state.
func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:           s.ID,
		SourceKey:    s.Request.Source.Key(),
		Sink:         s.Request.Sink,
		Quality:      s.Request.Quality,
		State:        s.state.String(),
		StartedAt:    s.startedAt,
		FrameRate:    s.Plan.ResolvedFrameRate,
		BitrateKbps:  s.Plan.ResolvedBitrateKbps,
		UsedFallback: s.Request.Source.UsedFallback,
		LastError:    s.lastError,
		ExitCode:     s.exitCode,
	}
}

// currentState reads the state under the session lock.
func (s *Session) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
