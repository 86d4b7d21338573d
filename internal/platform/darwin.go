package platform

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/avhost/castnode/internal/device"
)

// darwinProfile captures everything through avfoundation. Device ids are
// enumeration indices; screens appear after cameras in the same index
// space, addressed here by display index.
type darwinProfile struct{}

var (
	// avfoundation -list_devices output:
	//   [AVFoundation indev @ 0x...] [0] FaceTime HD Camera
	darwinHeader = regexp.MustCompile(`^\[AVFoundation[^\]]*\] \[(?P<id>\d+)\] (?P<name>.+)$`)

	// Supported-mode lines:
	//   [AVFoundation indev @ 0x...]   1920x1080@[30.000030 30.000030]fps
	darwinMode = regexp.MustCompile(`(?P<w>\d+)x(?P<h>\d+)@\[[0-9.]+ (?P<fps>[0-9.]+)\]fps`)
)

func (darwinProfile) Name() string { return "darwin" }

func (darwinProfile) DefaultFrameRate(kind device.Kind) float64 {
	if kind == device.ScreenRegion {
		return 60
	}
	return 30
}

func (darwinProfile) DefaultDeviceIndex(device.Kind) int { return 0 }

func (darwinProfile) InputArgs(ref device.Ref, frameRate float64) []string {
	fps := strconv.FormatFloat(frameRate, 'f', -1, 64)
	switch ref.Kind {
	case device.ScreenRegion:
		return []string{
			"-f", "avfoundation",
			"-capture_cursor", "1",
			"-framerate", fps,
			"-i", fmt.Sprintf("Capture screen %d:none", ref.CanonicalIndex),
		}
	default:
		return []string{
			"-f", "avfoundation",
			"-framerate", fps,
			"-i", ref.PlatformID + ":none",
		}
	}
}

func (darwinProfile) AudioArgs(ref device.Ref) []string {
	return []string{
		"-f", "avfoundation",
		"-i", "none:" + ref.PlatformID,
	}
}

func (darwinProfile) Probe(kind device.Kind) ProbeSpec {
	return ProbeSpec{
		Args:   []string{"-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", ""},
		Header: darwinHeader,
		Mode:   darwinMode,
	}
}
