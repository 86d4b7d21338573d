// Package platform isolates per-OS capture details: encoder input argument
// construction, the device-listing probe invocation, and the line patterns
// that recognize its output. One profile per platform, selected once at
// startup, never re-branched inline.
package platform

import (
	"fmt"
	"regexp"

	"github.com/avhost/castnode/internal/device"
)

// ProbeSpec describes how to enumerate devices of one kind: the argument
// vector for the probe invocation and the patterns that recognize its
// free-text output. Header opens a device record (named group "id",
// optional "name"); Mode attaches a frame rate (named group "fps",
// optional "w"/"h") to the open record; Size, when set, matches
// resolution-only lines.
type ProbeSpec struct {
	Args   []string
	Header *regexp.Regexp
	Mode   *regexp.Regexp
	Size   *regexp.Regexp
}

// Profile is the per-OS capture strategy.
type Profile interface {
	// Name is the platform identifier (matches runtime.GOOS).
	Name() string

	// DefaultFrameRate is the fallback when a device reports no rates.
	DefaultFrameRate(kind device.Kind) float64

	// DefaultDeviceIndex is the fallback device handle for unresolvable ids.
	DefaultDeviceIndex(kind device.Kind) int

	// InputArgs builds the encoder input flags for the primary source.
	// Order within the slice is part of the encoder's argument grammar.
	InputArgs(ref device.Ref, frameRate float64) []string

	// AudioArgs builds the flags for an additional audio input.
	AudioArgs(ref device.Ref) []string

	// Probe describes the device-listing invocation for the given kind.
	Probe(kind device.Kind) ProbeSpec
}

// ForOS returns the profile for the given GOOS value.
func ForOS(goos string) (Profile, error) {
	switch goos {
	case "linux":
		return linuxProfile{}, nil
	case "darwin":
		return darwinProfile{}, nil
	case "windows":
		return windowsProfile{}, nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", goos)
	}
}
