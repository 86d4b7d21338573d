package platform

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/avhost/castnode/internal/device"
)

// linuxProfile captures via v4l2 (cameras), alsa (microphones) and x11grab
// (screens). Camera ids are device node paths (/dev/videoN) or stable
// /dev/v4l/by-id symlink names.
type linuxProfile struct{}

var (
	// v4l2-ctl --list-formats-ext transcript, one block per device node.
	linuxVideoHeader = regexp.MustCompile(`^(?P<id>/dev/video\d+)`)
	linuxVideoMode   = regexp.MustCompile(`Interval: Discrete [0-9.]+s \((?P<fps>[0-9.]+) fps\)`)
	linuxVideoSize   = regexp.MustCompile(`Size: Discrete (?P<w>\d+)x(?P<h>\d+)`)

	// arecord -l transcript.
	linuxAudioHeader = regexp.MustCompile(`^card (?P<id>\d+): (?P<name>\S+)`)
)

func (linuxProfile) Name() string { return "linux" }

func (linuxProfile) DefaultFrameRate(kind device.Kind) float64 {
	switch kind {
	case device.ScreenRegion:
		return 30
	default:
		return 30
	}
}

func (linuxProfile) DefaultDeviceIndex(device.Kind) int { return 0 }

func (linuxProfile) InputArgs(ref device.Ref, frameRate float64) []string {
	fps := strconv.FormatFloat(frameRate, 'f', -1, 64)
	switch ref.Kind {
	case device.ScreenRegion:
		return []string{
			"-f", "x11grab",
			"-framerate", fps,
			"-i", fmt.Sprintf(":%d.0", ref.CanonicalIndex),
		}
	default:
		return []string{
			"-f", "v4l2",
			"-framerate", fps,
			"-i", ref.PlatformID,
		}
	}
}

func (linuxProfile) AudioArgs(ref device.Ref) []string {
	return []string{
		"-thread_queue_size", "1024",
		"-f", "alsa",
		"-ar", "48000",
		"-ac", "2",
		"-i", ref.PlatformID,
	}
}

func (linuxProfile) Probe(kind device.Kind) ProbeSpec {
	if kind == device.Microphone {
		return ProbeSpec{
			Args:   []string{"-hide_banner", "-f", "alsa", "-list_devices", "true", "-i", ""},
			Header: linuxAudioHeader,
		}
	}
	return ProbeSpec{
		Args:   []string{"-hide_banner", "-f", "v4l2", "-list_formats", "all", "-i", "all"},
		Header: linuxVideoHeader,
		Mode:   linuxVideoMode,
		Size:   linuxVideoSize,
	}
}
