package probe

import (
	"reflect"
	"testing"

	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/platform"
)

func darwinSpec(t *testing.T) platform.ProbeSpec {
	t.Helper()
	p, err := platform.ForOS("darwin")
	if err != nil {
		t.Fatal(err)
	}
	return p.Probe(device.Camera)
}

func TestParseTwoDevicesInterleaved(t *testing.T) {
	transcript := `[AVFoundation indev @ 0x7f8] AVFoundation video devices:
[AVFoundation indev @ 0x7f8] [0] FaceTime HD Camera
[AVFoundation indev @ 0x7f8] Supported modes:
[AVFoundation indev @ 0x7f8]   1280x720@[1.000000 30.000000]fps
[AVFoundation indev @ 0x7f8]   1920x1080@[1.000000 30.000000]fps
[AVFoundation indev @ 0x7f8] [1] USB Capture HDMI
[AVFoundation indev @ 0x7f8]   1920x1080@[1.000000 30.000000]fps
[AVFoundation indev @ 0x7f8]   1920x1080@[1.000000 59.940000]fps
`

	snap := Parse(transcript, device.Camera, darwinSpec(t))

	if len(snap.Devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(snap.Devices))
	}

	// Modes attach only to the header preceding them.
	first := snap.Devices[0]
	if first.Device.PlatformID != "0" {
		t.Errorf("first device id = %q, want 0", first.Device.PlatformID)
	}
	if !reflect.DeepEqual(first.FrameRates, []float64{30}) {
		t.Errorf("first device rates = %v, want [30]", first.FrameRates)
	}

	second := snap.Devices[1]
	if !reflect.DeepEqual(second.FrameRates, []float64{59.94, 30}) {
		t.Errorf("second device rates = %v, want [59.94 30] (dedup, descending)", second.FrameRates)
	}
}

func TestParseAssignsEnumerationIndex(t *testing.T) {
	p, err := platform.ForOS("linux")
	if err != nil {
		t.Fatal(err)
	}
	spec := p.Probe(device.Camera)

	transcript := "/dev/video0\n" +
		"\t\tSize: Discrete 1920x1080\n" +
		"\t\t\tInterval: Discrete 0.033s (30.000 fps)\n" +
		"/dev/video2\n" +
		"\t\tSize: Discrete 1280x720\n" +
		"\t\t\tInterval: Discrete 0.017s (60.000 fps)\n"

	snap := Parse(transcript, device.Camera, spec)
	if len(snap.Devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(snap.Devices))
	}

	// Canonical index is the enumeration position, not the platform id.
	for i, dev := range snap.Devices {
		if dev.Device.CanonicalIndex != i {
			t.Errorf("device %q: CanonicalIndex = %d, want enumeration position %d",
				dev.Device.PlatformID, dev.Device.CanonicalIndex, i)
		}
	}
	if snap.Devices[1].Device.PlatformID != "/dev/video2" {
		t.Errorf("second device id = %q, want /dev/video2", snap.Devices[1].Device.PlatformID)
	}
}

func TestParseDeduplicatesFrameRates(t *testing.T) {
	transcript := `[AVFoundation indev @ 0x7f8] [0] Cam
[AVFoundation indev @ 0x7f8]   1280x720@[1.000000 30.000000]fps
[AVFoundation indev @ 0x7f8]   1920x1080@[1.000000 30.000000]fps
[AVFoundation indev @ 0x7f8]   1920x1080@[1.000000 59.940000]fps
`

	snap := Parse(transcript, device.Camera, darwinSpec(t))
	if len(snap.Devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(snap.Devices))
	}
	if !reflect.DeepEqual(snap.Devices[0].FrameRates, []float64{59.94, 30}) {
		t.Errorf("rates = %v, want [59.94 30]", snap.Devices[0].FrameRates)
	}
}

func TestParseIgnoresUnrecognizedLines(t *testing.T) {
	transcript := `garbage preamble
[AVFoundation indev @ 0x7f8]   1920x1080@[1.000000 60.000000]fps
[AVFoundation indev @ 0x7f8] [0] Cam
not a mode line at all
[AVFoundation indev @ 0x7f8]   1280x720@[1.000000 24.000000]fps
trailing noise
`

	snap := Parse(transcript, device.Camera, darwinSpec(t))
	if len(snap.Devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(snap.Devices))
	}
	// The mode line before any header must not attach anywhere.
	if !reflect.DeepEqual(snap.Devices[0].FrameRates, []float64{24}) {
		t.Errorf("rates = %v, want [24]", snap.Devices[0].FrameRates)
	}
}

func TestParseEmptyTranscript(t *testing.T) {
	snap := Parse("", device.Camera, darwinSpec(t))
	if len(snap.Devices) != 0 {
		t.Errorf("expected empty snapshot, got %d devices", len(snap.Devices))
	}
	if snap.CapturedAt.IsZero() {
		t.Error("CapturedAt should be set even for an empty snapshot")
	}
}

func TestParseLinuxSizeLines(t *testing.T) {
	p, err := platform.ForOS("linux")
	if err != nil {
		t.Fatal(err)
	}
	spec := p.Probe(device.Camera)

	transcript := "/dev/video0\n" +
		"\t[0]: 'MJPG' (Motion-JPEG, compressed)\n" +
		"\t\tSize: Discrete 1920x1080\n" +
		"\t\t\tInterval: Discrete 0.033s (30.000 fps)\n" +
		"\t\tSize: Discrete 1280x720\n" +
		"\t\t\tInterval: Discrete 0.017s (60.000 fps)\n" +
		"\t\t\tInterval: Discrete 0.033s (30.000 fps)\n"

	snap := Parse(transcript, device.Camera, spec)
	if len(snap.Devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(snap.Devices))
	}

	cap := snap.Devices[0]
	if cap.Device.PlatformID != "/dev/video0" {
		t.Errorf("device id = %q", cap.Device.PlatformID)
	}
	if !reflect.DeepEqual(cap.FrameRates, []float64{60, 30}) {
		t.Errorf("rates = %v, want [60 30]", cap.FrameRates)
	}
	wantSizes := []device.Resolution{{Width: 1920, Height: 1080}, {Width: 1280, Height: 720}}
	if !reflect.DeepEqual(cap.Resolutions, wantSizes) {
		t.Errorf("resolutions = %v, want %v", cap.Resolutions, wantSizes)
	}
}
