package platform

import (
	"regexp"
	"strconv"

	"github.com/avhost/castnode/internal/device"
)

// windowsProfile captures cameras and microphones through dshow and screens
// through gdigrab. Device ids are dshow friendly names.
type windowsProfile struct{}

var (
	// dshow -list_devices output:
	//   [dshow @ 0x...] "HD WebCam" (video)
	windowsHeader = regexp.MustCompile(`^\[dshow[^\]]*\] "(?P<id>[^"]+)" \((?:video|audio)\)$`)

	// dshow -list_options output:
	//   [dshow @ 0x...]   pixel_format=yuyv422  min s=640x480 fps=30 max s=1280x720 fps=60
	windowsMode = regexp.MustCompile(`max s=(?P<w>\d+)x(?P<h>\d+) fps=(?P<fps>[0-9.]+)`)
)

func (windowsProfile) Name() string { return "windows" }

func (windowsProfile) DefaultFrameRate(device.Kind) float64 { return 30 }

func (windowsProfile) DefaultDeviceIndex(device.Kind) int { return 0 }

func (windowsProfile) InputArgs(ref device.Ref, frameRate float64) []string {
	fps := strconv.FormatFloat(frameRate, 'f', -1, 64)
	if ref.Kind == device.ScreenRegion {
		return []string{
			"-f", "gdigrab",
			"-framerate", fps,
			"-i", "desktop",
		}
	}
	return []string{
		"-f", "dshow",
		"-framerate", fps,
		"-i", "video=" + ref.PlatformID,
	}
}

func (windowsProfile) AudioArgs(ref device.Ref) []string {
	return []string{
		"-f", "dshow",
		"-i", "audio=" + ref.PlatformID,
	}
}

func (windowsProfile) Probe(kind device.Kind) ProbeSpec {
	return ProbeSpec{
		Args:   []string{"-hide_banner", "-list_devices", "true", "-f", "dshow", "-i", "dummy"},
		Header: windowsHeader,
		Mode:   windowsMode,
	}
}
