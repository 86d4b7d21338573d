// Package probe enumerates capture devices by running the encoder binary in
// its device-listing mode and parsing the transcript. It is the only
// component allowed to interpret the binary's free-text output.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/events"
	"github.com/avhost/castnode/internal/logging"
	"github.com/avhost/castnode/internal/metrics"
	"github.com/avhost/castnode/internal/platform"
)

// ErrProbeUnavailable indicates the listing subprocess could not be spawned.
var ErrProbeUnavailable = errors.New("capability probe unavailable")

// DefaultTTL is how long a snapshot stays fresh. Device sets rarely change
// faster than this.
const DefaultTTL = 5 * time.Minute

// Runner executes the listing subprocess and returns its combined output.
// Injectable for tests.
type Runner func(ctx context.Context, binary string, args []string) (string, error)

// Prober caches capability snapshots per device kind with TTL expiry and
// coalesces concurrent probes for the same kind into one subprocess spawn.
type Prober struct {
	binary  string
	profile platform.Profile
	ttl     time.Duration
	run     Runner
	bus     *events.Bus
	logger  *slog.Logger

	mu       sync.Mutex
	cache    map[device.Kind]device.CapabilitySnapshot
	inflight map[device.Kind]*call
}

type call struct {
	done chan struct{}
	snap device.CapabilitySnapshot
	err  error
}

// Option configures a Prober.
type Option func(*Prober)

// WithTTL overrides the snapshot freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(p *Prober) { p.ttl = ttl }
}

// WithRunner replaces the subprocess runner.
func WithRunner(run Runner) Option {
	return func(p *Prober) { p.run = run }
}

// WithLogger replaces the module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) { p.logger = logger }
}

// New creates a Prober for the given encoder binary and platform profile.
func New(binary string, profile platform.Profile, bus *events.Bus, opts ...Option) *Prober {
	p := &Prober{
		binary:   binary,
		profile:  profile,
		ttl:      DefaultTTL,
		run:      runSubprocess,
		bus:      bus,
		logger:   logging.GetLogger("probe"),
		cache:    make(map[device.Kind]device.CapabilitySnapshot),
		inflight: make(map[device.Kind]*call),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the capability snapshot for the given kind, probing if
// the cached one is missing or stale. With refresh set, the cache is
// bypassed (the whole entry is replaced on success, never edited in place).
// Concurrent callers for the same kind share a single probe.
func (p *Prober) Snapshot(ctx context.Context, kind device.Kind, refresh bool) (device.CapabilitySnapshot, error) {
	p.mu.Lock()

	if !refresh {
		if snap, ok := p.cache[kind]; ok && time.Since(snap.CapturedAt) < p.ttl {
			p.mu.Unlock()
			return snap, nil
		}
	}

	if c, ok := p.inflight[kind]; ok {
		p.mu.Unlock()
		select {
		case <-c.done:
			return c.snap, c.err
		case <-ctx.Done():
			return device.CapabilitySnapshot{}, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	p.inflight[kind] = c
	p.mu.Unlock()

	c.snap, c.err = p.probe(ctx, kind)

	p.mu.Lock()
	delete(p.inflight, kind)
	if c.err == nil {
		p.cache[kind] = c.snap
	}
	p.mu.Unlock()

	close(c.done)
	return c.snap, c.err
}

// Cached returns the cached snapshot for the given kind without probing.
func (p *Prober) Cached(kind device.Kind) (device.CapabilitySnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap, ok := p.cache[kind]
	if !ok || time.Since(snap.CapturedAt) >= p.ttl {
		return device.CapabilitySnapshot{}, false
	}
	return snap, true
}

func (p *Prober) probe(ctx context.Context, kind device.Kind) (device.CapabilitySnapshot, error) {
	spec := p.profile.Probe(kind)

	start := time.Now()
	output, err := p.run(ctx, p.binary, spec.Args)
	metrics.ObserveProbeDuration(string(kind), time.Since(start))

	// Listing modes of encoder binaries exit nonzero as a matter of course
	// (no real input was given); the transcript is still usable. Only a
	// spawn that produced no output at all is a failure.
	if err != nil && output == "" {
		metrics.IncProbeFailures(string(kind))
		p.logger.Error("Probe spawn failed", "kind", kind, "binary", p.binary, "error", err)
		return device.CapabilitySnapshot{}, errors.Join(ErrProbeUnavailable, err)
	}

	snap := Parse(output, kind, spec)
	p.logger.Debug("Probe completed",
		"kind", kind,
		"devices", len(snap.Devices),
		"duration", time.Since(start))

	if p.bus != nil {
		p.bus.Publish(events.DeviceProbedEvent{
			Kind:        string(kind),
			DeviceCount: len(snap.Devices),
			Timestamp:   snap.CapturedAt.UTC().Format(time.RFC3339),
		})
	}

	return snap, nil
}

func runSubprocess(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
