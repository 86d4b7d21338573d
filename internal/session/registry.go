package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/events"
	"github.com/avhost/castnode/internal/logging"
	"github.com/avhost/castnode/internal/metrics"
	"github.com/avhost/castnode/internal/plan"
	"github.com/avhost/castnode/internal/platform"
	"github.com/avhost/castnode/internal/probe"
)

// StartRequest is the caller-facing input to Registry.Start.
type StartRequest struct {
	SourceID string       `json:"source_id"`
	Kind     device.Kind  `json:"kind"`
	AudioID  string       `json:"audio_id,omitempty"`
	Sink     string       `json:"sink"`
	Quality  plan.Quality `json:"quality"`
}

// CommandFunc maps a plan to the argument vector actually spawned.
// Injectable for tests; the default prepends the configured encoder binary.
type CommandFunc func(p plan.Plan) (binary string, args []string)

// Registry is the process-wide session table: sessions keyed by id with a
// secondary uniqueness index on (source, sink). All lifecycle mutations go
// through Start/Stop/Status; nothing else touches a Session's internals.
type Registry struct {
	profile       platform.Profile
	prober        *probe.Prober
	planner       *plan.Planner
	command       CommandFunc
	grace         time.Duration
	stopTimeout   time.Duration
	tailLines     int
	bus           *events.Bus
	logger        *slog.Logger
	encoderLogger *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	byKey    map[string]uuid.UUID
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithGraceWindow overrides the Starting->Running grace window.
func WithGraceWindow(d time.Duration) RegistryOption {
	return func(r *Registry) { r.grace = d }
}

// WithStopTimeout overrides the graceful stop timeout.
func WithStopTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.stopTimeout = d }
}

// WithCommandFunc replaces the spawned command construction.
func WithCommandFunc(f CommandFunc) RegistryOption {
	return func(r *Registry) { r.command = f }
}

// WithTailLines sets how many stderr lines are retained for lastError.
func WithTailLines(n int) RegistryOption {
	return func(r *Registry) { r.tailLines = n }
}

// WithLoggers overrides the registry and encoder-output loggers.
func WithLoggers(logger, encoderLogger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
		r.encoderLogger = encoderLogger
	}
}

// NewRegistry creates a Registry spawning the given encoder binary.
func NewRegistry(binary string, profile platform.Profile, prober *probe.Prober,
	planner *plan.Planner, bus *events.Bus, opts ...RegistryOption) *Registry {
	r := &Registry{
		profile:       profile,
		prober:        prober,
		planner:       planner,
		grace:         DefaultGraceWindow,
		stopTimeout:   DefaultStopTimeout,
		tailLines:     defaultTailLines,
		bus:           bus,
		logger:        logging.GetLogger("session"),
		encoderLogger: logging.GetLogger("encoder"),
		sessions:      make(map[uuid.UUID]*Session),
		byKey:         make(map[string]uuid.UUID),
	}
	r.command = func(p plan.Plan) (string, []string) {
		return binary, append([]string{"-hide_banner", "-loglevel", "level+info"}, p.Args()...)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start resolves, plans and spawns a new session.
//
// Resolution and planning happen before any registry state is created, so
// those failures leave nothing behind. The uniqueness check and the insert
// are one critical section: of two concurrent starts for the same
// (source, sink) key exactly one wins, the other gets ALREADY_STREAMING.
func (r *Registry) Start(ctx context.Context, req StartRequest) (uuid.UUID, error) {
	planReq, caps, err := r.resolve(ctx, req)
	if err != nil {
		return uuid.Nil, err
	}

	p, err := r.planner.Build(planReq, caps)
	if err != nil {
		if errors.Is(err, plan.ErrInvalidSinkAddress) {
			return uuid.Nil, NewError(ErrCodeInvalidSink, "sink must be an rtmp:// or rtmps:// address", err)
		}
		return uuid.Nil, err
	}

	id := uuid.New()
	binary, args := r.command(p)
	run := newRunner(binary, args, r.tailLines, r.logger, r.encoderLogger)
	sess := newSession(id, planReq, p, run, r.grace, r.stopTimeout,
		r.logger, r.handleTransition)

	r.mu.Lock()
	if _, ok := r.byKey[sess.Key()]; ok {
		r.mu.Unlock()
		return uuid.Nil, NewError(ErrCodeAlreadyStreaming,
			"a session for this source and sink is already active", nil)
	}
	r.sessions[id] = sess
	r.byKey[sess.Key()] = id
	r.mu.Unlock()

	if err := sess.start(); err != nil {
		r.mu.Lock()
		delete(r.sessions, id)
		delete(r.byKey, sess.Key())
		r.mu.Unlock()
		return uuid.Nil, NewError(ErrCodeSpawnFailure, "failed to spawn encoder", err)
	}

	metrics.IncSessionStarts()
	r.updateActiveGauge()
	r.bus.Publish(events.SessionStartedEvent{
		SessionID: id.String(),
		SourceKey: planReq.Source.Key(),
		Sink:      planReq.Sink,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	r.logger.Info("Session started",
		"session_id", id,
		"source", planReq.Source.Key(),
		"sink", planReq.Sink,
		"quality", planReq.Quality,
		"frame_rate", p.ResolvedFrameRate)

	return id, nil
}

// resolve turns the raw request into a planned request plus the capability
// snapshot planning should consult.
func (r *Registry) resolve(ctx context.Context, req StartRequest) (plan.Request, *device.CapabilitySnapshot, error) {
	var caps *device.CapabilitySnapshot

	// Screens are addressed by index and never appear in the listing
	// transcript, so only cameras and microphones are probed.
	if req.Kind != device.ScreenRegion {
		snap, err := r.prober.Snapshot(ctx, req.Kind, false)
		if err != nil {
			if errors.Is(err, probe.ErrProbeUnavailable) {
				return plan.Request{}, nil, NewError(ErrCodeProbeUnavailable,
					"device capability probe unavailable", err)
			}
			return plan.Request{}, nil, err
		}
		caps = &snap
	}

	source, err := device.Resolve(req.SourceID, req.Kind, r.profile.DefaultDeviceIndex(req.Kind), caps)
	if err != nil {
		return plan.Request{}, nil, NewError(ErrCodeUnresolvableDevice,
			"cannot resolve capture device", err)
	}

	planReq := plan.Request{
		Source:  source,
		Sink:    req.Sink,
		Quality: req.Quality,
	}

	if req.AudioID != "" {
		// An explicit audio id resolves against the cached microphone
		// snapshot when there is one and passes through otherwise; no
		// extra probe spawn on the start path.
		var micCaps *device.CapabilitySnapshot
		if snap, ok := r.prober.Cached(device.Microphone); ok {
			micCaps = &snap
		}
		audio, err := device.Resolve(req.AudioID, device.Microphone,
			r.profile.DefaultDeviceIndex(device.Microphone), micCaps)
		if err != nil {
			return plan.Request{}, nil, NewError(ErrCodeUnresolvableDevice,
				"cannot resolve audio device", err)
		}
		planReq.Audio = &audio
	}

	return planReq, caps, nil
}

// Stop gracefully terminates a session and removes it from the registry.
// Idempotent from the caller's view: the first call wins, any later call
// for the same id gets NO_ACTIVE_SESSION.
func (r *Registry) Stop(id uuid.UUID) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return NewError(ErrCodeNoActiveSession, "no active session with this id", nil)
	}

	if !sess.requestStop() {
		return NewError(ErrCodeNoActiveSession, "no active session with this id", nil)
	}

	sess.stop()

	// The explicit stop is the caller's acknowledgment; reap immediately.
	r.mu.Lock()
	delete(r.sessions, id)
	if r.byKey[sess.Key()] == id {
		delete(r.byKey, sess.Key())
	}
	r.mu.Unlock()
	r.updateActiveGauge()

	return nil
}

// Status returns an immutable snapshot of the session. Reading the status
// of a session in a terminal state acknowledges it: the entry is reaped and
// lastError is gone with it, so it is readable exactly once.
func (r *Registry) Status(id uuid.UUID) (Snapshot, error) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return Snapshot{}, NewError(ErrCodeNoActiveSession, "no active session with this id", nil)
	}

	snap := sess.snapshot()
	if sess.currentState().Terminal() {
		delete(r.sessions, id)
		if r.byKey[sess.Key()] == id {
			delete(r.byKey, sess.Key())
		}
	}
	r.mu.Unlock()

	return snap, nil
}

// List returns snapshots of all registered sessions, oldest first.
// Non-blocking: reads only in-memory state.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	snaps := make([]Snapshot, 0, len(r.sessions))
	for _, sess := range r.sessions {
		snaps = append(snaps, sess.snapshot())
	}
	r.mu.Unlock()

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].StartedAt.Equal(snaps[j].StartedAt) {
			return snaps[i].ID.String() < snaps[j].ID.String()
		}
		return snaps[i].StartedAt.Before(snaps[j].StartedAt)
	})
	return snaps
}

// StopAll stops every active session. Used on daemon shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	active := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		active = append(active, sess)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range active {
		if !sess.requestStop() {
			continue
		}
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.stop()
		}(sess)
	}
	wg.Wait()

	r.mu.Lock()
	r.sessions = make(map[uuid.UUID]*Session)
	r.byKey = make(map[string]uuid.UUID)
	r.mu.Unlock()
	r.updateActiveGauge()
}

// handleTransition reacts to session state changes: events out, metrics
// updated, and crashed sessions evicted from the uniqueness index so the
// (source, sink) pair becomes startable again while lastError stays
// readable via Status.
func (r *Registry) handleTransition(s *Session, old, newState State) {
	now := time.Now().UTC().Format(time.RFC3339)
	r.bus.Publish(events.SessionStateChangedEvent{
		SessionID: s.ID.String(),
		OldState:  old.String(),
		NewState:  newState.String(),
		Timestamp: now,
	})

	switch newState {
	case Crashed:
		snap := s.snapshot()
		metrics.IncSessionCrashes(snap.ExitCode)
		r.bus.Publish(events.SessionCrashedEvent{
			SessionID: s.ID.String(),
			ExitCode:  snap.ExitCode,
			Timestamp: now,
		})
		r.releaseKey(s)
	case Terminated:
		s.mu.Lock()
		forced := s.forced
		s.mu.Unlock()
		r.bus.Publish(events.SessionStoppedEvent{
			SessionID: s.ID.String(),
			Forced:    forced,
			Timestamp: now,
		})
		r.releaseKey(s)
	}

	r.updateActiveGauge()
}

// releaseKey frees the (source, sink) slot without touching the id entry.
func (r *Registry) releaseKey(s *Session) {
	r.mu.Lock()
	if r.byKey[s.Key()] == s.ID {
		delete(r.byKey, s.Key())
	}
	r.mu.Unlock()
}

func (r *Registry) updateActiveGauge() {
	r.mu.Lock()
	active := 0
	for _, sess := range r.sessions {
		if !sess.currentState().Terminal() {
			active++
		}
	}
	r.mu.Unlock()
	metrics.SetActiveSessions(active)
}
