package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/events"
	"github.com/avhost/castnode/internal/platform"
)

const cameraTranscript = `[AVFoundation indev @ 0x7f8] [0] FaceTime HD Camera
[AVFoundation indev @ 0x7f8]   1920x1080@[1.000000 30.000000]fps
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProber(t *testing.T, run Runner, opts ...Option) *Prober {
	t.Helper()
	p, err := platform.ForOS("darwin")
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithRunner(run), WithLogger(discardLogger())}, opts...)
	return New("ffmpeg", p, events.New(), opts...)
}

func TestSnapshotCachesWithinTTL(t *testing.T) {
	var spawns atomic.Int32
	run := func(ctx context.Context, binary string, args []string) (string, error) {
		spawns.Add(1)
		return cameraTranscript, nil
	}

	p := newTestProber(t, run)

	for i := 0; i < 3; i++ {
		snap, err := p.Snapshot(context.Background(), device.Camera, false)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if len(snap.Devices) != 1 {
			t.Fatalf("expected 1 device, got %d", len(snap.Devices))
		}
	}

	if n := spawns.Load(); n != 1 {
		t.Errorf("expected 1 subprocess spawn for 3 cached reads, got %d", n)
	}
}

func TestSnapshotRefreshBypassesCache(t *testing.T) {
	var spawns atomic.Int32
	run := func(ctx context.Context, binary string, args []string) (string, error) {
		spawns.Add(1)
		return cameraTranscript, nil
	}

	p := newTestProber(t, run)

	if _, err := p.Snapshot(context.Background(), device.Camera, false); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Snapshot(context.Background(), device.Camera, true); err != nil {
		t.Fatal(err)
	}

	if n := spawns.Load(); n != 2 {
		t.Errorf("expected refresh to spawn again, got %d spawns", n)
	}
}

func TestSnapshotTTLExpiry(t *testing.T) {
	var spawns atomic.Int32
	run := func(ctx context.Context, binary string, args []string) (string, error) {
		spawns.Add(1)
		return cameraTranscript, nil
	}

	p := newTestProber(t, run, WithTTL(10*time.Millisecond))

	if _, err := p.Snapshot(context.Background(), device.Camera, false); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := p.Snapshot(context.Background(), device.Camera, false); err != nil {
		t.Fatal(err)
	}

	if n := spawns.Load(); n != 2 {
		t.Errorf("expected stale cache to re-probe, got %d spawns", n)
	}
}

func TestConcurrentProbesCoalesce(t *testing.T) {
	var spawns atomic.Int32
	release := make(chan struct{})
	run := func(ctx context.Context, binary string, args []string) (string, error) {
		spawns.Add(1)
		<-release
		return cameraTranscript, nil
	}

	p := newTestProber(t, run)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Snapshot(context.Background(), device.Camera, false)
		}(i)
	}

	// Let all callers reach the prober before the subprocess "finishes".
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if n := spawns.Load(); n != 1 {
		t.Errorf("expected %d concurrent probes to coalesce into 1 spawn, got %d", callers, n)
	}
}

func TestSpawnFailureIsProbeUnavailable(t *testing.T) {
	run := func(ctx context.Context, binary string, args []string) (string, error) {
		return "", errors.New("exec: \"ffmpeg\": executable file not found in $PATH")
	}

	p := newTestProber(t, run)

	_, err := p.Snapshot(context.Background(), device.Camera, false)
	if !errors.Is(err, ErrProbeUnavailable) {
		t.Fatalf("expected ErrProbeUnavailable, got %v", err)
	}
}

func TestNonzeroExitWithOutputStillParses(t *testing.T) {
	// Listing modes exit nonzero as a matter of course; the transcript is
	// still the real device list.
	run := func(ctx context.Context, binary string, args []string) (string, error) {
		return cameraTranscript, errors.New("exit status 1")
	}

	p := newTestProber(t, run)

	snap, err := p.Snapshot(context.Background(), device.Camera, false)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Devices) != 1 {
		t.Errorf("expected 1 device, got %d", len(snap.Devices))
	}
}

func TestZeroDevicesIsValidEmptySnapshot(t *testing.T) {
	run := func(ctx context.Context, binary string, args []string) (string, error) {
		return "[AVFoundation indev @ 0x7f8] AVFoundation video devices:\n", nil
	}

	p := newTestProber(t, run)

	snap, err := p.Snapshot(context.Background(), device.Camera, false)
	if err != nil {
		t.Fatalf("empty device list must not error, got %v", err)
	}
	if len(snap.Devices) != 0 {
		t.Errorf("expected empty snapshot, got %d devices", len(snap.Devices))
	}
}
