package plan

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/platform"
)

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	p, err := platform.ForOS("linux")
	if err != nil {
		t.Fatal(err)
	}
	return NewPlanner(p, DefaultTable())
}

func cameraSnapshot(rates ...float64) *device.CapabilitySnapshot {
	return &device.CapabilitySnapshot{
		Kind: device.Camera,
		Devices: []device.Capability{
			{
				Device:     device.Ref{Kind: device.Camera, PlatformID: "/dev/video0"},
				FrameRates: rates,
			},
		},
		CapturedAt: time.Now(),
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	planner := newTestPlanner(t)
	audio := &device.Ref{Kind: device.Microphone, PlatformID: "hw:1,0"}
	req := Request{
		Source:  device.Ref{Kind: device.Camera, PlatformID: "/dev/video0"},
		Audio:   audio,
		Sink:    "rtmp://live.example.com/app/key",
		Quality: Standard,
	}
	caps := cameraSnapshot(60, 30, 24)

	first, err := planner.Build(req, caps)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	second, err := planner.Build(req, caps)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !reflect.DeepEqual(first.InputArgs, second.InputArgs) {
		t.Errorf("InputArgs differ across identical calls:\n%v\n%v", first.InputArgs, second.InputArgs)
	}
	if !reflect.DeepEqual(first.OutputArgs, second.OutputArgs) {
		t.Errorf("OutputArgs differ across identical calls:\n%v\n%v", first.OutputArgs, second.OutputArgs)
	}
}

func TestBuildHighProfilePicksSixty(t *testing.T) {
	planner := newTestPlanner(t)
	req := Request{
		Source:  device.Ref{Kind: device.Camera, PlatformID: "/dev/video0"},
		Sink:    "rtmp://live.example.com/app/key",
		Quality: High,
	}

	plan, err := planner.Build(req, cameraSnapshot(60, 30, 24))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if plan.ResolvedFrameRate != 60 {
		t.Errorf("ResolvedFrameRate = %v, want 60", plan.ResolvedFrameRate)
	}
	if plan.ResolvedBitrateKbps != defaultProfiles[High].BitrateKbps {
		t.Errorf("ResolvedBitrateKbps = %d, want High table entry %d",
			plan.ResolvedBitrateKbps, defaultProfiles[High].BitrateKbps)
	}
}

func TestBuildStandardCapsAtThirty(t *testing.T) {
	planner := newTestPlanner(t)
	req := Request{
		Source:  device.Ref{Kind: device.Camera, PlatformID: "/dev/video0"},
		Sink:    "rtmp://live.example.com/app/key",
		Quality: Standard,
	}

	plan, err := planner.Build(req, cameraSnapshot(60, 59.94, 30, 24))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if plan.ResolvedFrameRate != 30 {
		t.Errorf("ResolvedFrameRate = %v, want 30 (highest rate under ceiling)", plan.ResolvedFrameRate)
	}
}

func TestBuildEmptySnapshotUsesPlatformDefault(t *testing.T) {
	planner := newTestPlanner(t)
	req := Request{
		Source:  device.Ref{Kind: device.Camera, PlatformID: "/dev/video0", UsedFallback: true},
		Sink:    "rtmp://live.example.com/app/key",
		Quality: Standard,
	}

	empty := &device.CapabilitySnapshot{Kind: device.Camera, CapturedAt: time.Now()}
	plan, err := planner.Build(req, empty)
	if err != nil {
		t.Fatalf("Build() on empty snapshot must succeed, got %v", err)
	}
	if plan.ResolvedFrameRate != 30 {
		t.Errorf("ResolvedFrameRate = %v, want platform default 30", plan.ResolvedFrameRate)
	}
}

func TestBuildSinkValidation(t *testing.T) {
	planner := newTestPlanner(t)

	tests := []struct {
		sink    string
		wantErr bool
	}{
		{"rtmp://live.example.com/app/key", false},
		{"rtmps://live.example.com/app/key", false},
		{"", true},
		{"rtmp://", true},
		{"http://example.com/live", true},
		{"rtsp://example.com/live", true},
	}

	for _, tt := range tests {
		t.Run(tt.sink, func(t *testing.T) {
			req := Request{
				Source:  device.Ref{Kind: device.Camera, PlatformID: "/dev/video0"},
				Sink:    tt.sink,
				Quality: Standard,
			}
			_, err := planner.Build(req, cameraSnapshot(30))
			if tt.wantErr && !errors.Is(err, ErrInvalidSinkAddress) {
				t.Errorf("sink %q: expected ErrInvalidSinkAddress, got %v", tt.sink, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("sink %q: unexpected error %v", tt.sink, err)
			}
		})
	}
}

func TestBuildArgumentOrdering(t *testing.T) {
	planner := newTestPlanner(t)
	audio := &device.Ref{Kind: device.Microphone, PlatformID: "hw:1,0"}
	req := Request{
		Source:  device.Ref{Kind: device.Camera, PlatformID: "/dev/video0"},
		Audio:   audio,
		Sink:    "rtmp://live.example.com/app/key",
		Quality: Standard,
	}

	plan, err := planner.Build(req, cameraSnapshot(30))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	args := plan.Args()
	if args[len(args)-1] != req.Sink {
		t.Errorf("sink must be the last argument, got %q", args[len(args)-1])
	}

	// Input format flag comes before the device, audio input after video.
	idx := func(s string) int {
		for i, a := range args {
			if a == s {
				return i
			}
		}
		t.Fatalf("argument %q not found in %v", s, args)
		return -1
	}
	if !(idx("v4l2") < idx("/dev/video0")) {
		t.Error("input format flags must precede the device")
	}
	if !(idx("/dev/video0") < idx("hw:1,0")) {
		t.Error("audio input must follow the video input")
	}
	if !(idx("hw:1,0") < idx("libx264")) {
		t.Error("output flags must follow all inputs")
	}
}

func TestBuildNoAudioOmitsAudioFlags(t *testing.T) {
	planner := newTestPlanner(t)
	req := Request{
		Source:  device.Ref{Kind: device.Camera, PlatformID: "/dev/video0"},
		Sink:    "rtmp://live.example.com/app/key",
		Quality: Low,
	}

	plan, err := planner.Build(req, cameraSnapshot(30))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, a := range plan.Args() {
		if a == "aac" || a == "alsa" {
			t.Errorf("audio flag %q present without an audio source", a)
		}
	}
}

func TestTableReplaceIsWholeTable(t *testing.T) {
	table := DefaultTable()
	table.ApplyOverrides(Overrides{
		Profiles: map[string]Profile{
			"high": {
				BitrateKbps:      8000,
				MaxBitrateKbps:   8800,
				BufSizeKbps:      16000,
				GOP:              120,
				Preset:           "medium",
				FrameRateCeiling: 60,
			},
		},
	})

	high, ok := table.Get(High)
	if !ok || high.BitrateKbps != 8000 {
		t.Errorf("High after override = %+v, want bitrate 8000", high)
	}

	// Qualities missing from the override fall back to defaults.
	std, ok := table.Get(Standard)
	if !ok || std.BitrateKbps != defaultProfiles[Standard].BitrateKbps {
		t.Errorf("Standard after partial override = %+v, want default", std)
	}

	// A second override without "high" restores the default row.
	table.ApplyOverrides(Overrides{})
	high, _ = table.Get(High)
	if high.BitrateKbps != defaultProfiles[High].BitrateKbps {
		t.Errorf("High after empty override = %+v, want default (replace-whole-table)", high)
	}
}
