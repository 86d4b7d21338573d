package device

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrUnresolvableDevice indicates a raw device id that cannot be mapped to a
// concrete capture device on this platform.
var ErrUnresolvableDevice = errors.New("unresolvable device")

// Screen ids arrive in heterogeneous formats: bare indices ("1"),
// composite handles ("screen:0:0", "window:12345:0"), or GUID-style strings
// with an embedded index. The first digit run is the handle.
var screenIndexPattern = regexp.MustCompile(`\d+`)

// Resolve normalizes a raw caller-supplied device identifier into a Ref.
//
// Screen ids have a numeric handle extracted by pattern match; when none is
// found the platform default index is used and the Ref is flagged with
// UsedFallback. Camera and microphone ids pass through as opaque platform
// ids when the snapshot knows them, otherwise an empty id selects the first
// snapshot device. With no snapshot and no usable id the device is
// unresolvable.
//
// Resolve is pure: it reads the snapshot but never mutates it.
func Resolve(rawID string, kind Kind, defaultIndex int, snapshot *CapabilitySnapshot) (Ref, error) {
	if !kind.Valid() {
		return Ref{}, fmt.Errorf("%w: unknown device kind %q", ErrUnresolvableDevice, string(kind))
	}

	if kind == ScreenRegion {
		return resolveScreen(rawID, defaultIndex), nil
	}

	return resolveAVDevice(rawID, kind, snapshot)
}

// resolveScreen extracts a numeric display handle from the raw id. Screens
// are always enumerable by index, so an unmatched id falls back to the
// platform default rather than failing.
func resolveScreen(rawID string, defaultIndex int) Ref {
	if m := screenIndexPattern.FindString(rawID); m != "" {
		if idx, err := strconv.Atoi(m); err == nil {
			return Ref{
				Kind:           ScreenRegion,
				PlatformID:     strconv.Itoa(idx),
				CanonicalIndex: idx,
			}
		}
	}

	return Ref{
		Kind:           ScreenRegion,
		PlatformID:     strconv.Itoa(defaultIndex),
		CanonicalIndex: defaultIndex,
		UsedFallback:   true,
	}
}

func resolveAVDevice(rawID string, kind Kind, snapshot *CapabilitySnapshot) (Ref, error) {
	if snapshot != nil && len(snapshot.Devices) > 0 {
		if rawID == "" {
			// No id supplied: take the first enumerated device.
			first := snapshot.Devices[0].Device
			return Ref{
				Kind:           kind,
				PlatformID:     first.PlatformID,
				CanonicalIndex: 0,
				UsedFallback:   true,
			}, nil
		}

		// Map the opaque id to its enumeration index via snapshot ordering.
		for i, cap := range snapshot.Devices {
			if cap.Device.PlatformID == rawID {
				return Ref{
					Kind:           kind,
					PlatformID:     rawID,
					CanonicalIndex: i,
				}, nil
			}
		}
	}

	if rawID == "" {
		return Ref{}, fmt.Errorf("%w: no %s id given and no capability snapshot available", ErrUnresolvableDevice, string(kind))
	}

	// Unknown to the snapshot (or no snapshot at all): pass the id through
	// opaquely. The encoder resolves it natively; index is unknowable here.
	return Ref{
		Kind:           kind,
		PlatformID:     rawID,
		CanonicalIndex: -1,
	}, nil
}
