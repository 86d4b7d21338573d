package device

import (
	"time"
)

// Kind identifies the class of capture source.
type Kind string

const (
	Camera       Kind = "camera"
	Microphone   Kind = "microphone"
	ScreenRegion Kind = "screen"
)

// Valid reports whether k is a known device kind.
func (k Kind) Valid() bool {
	switch k {
	case Camera, Microphone, ScreenRegion:
		return true
	}
	return false
}

// Ref is a canonical reference to a capture device. Identity is the pair
// (Kind, PlatformID). Immutable once resolved.
type Ref struct {
	Kind           Kind   `json:"kind"`
	PlatformID     string `json:"platform_id"`
	CanonicalIndex int    `json:"canonical_index"`
	UsedFallback   bool   `json:"used_fallback,omitempty"`
}

// Key returns the identity key used for uniqueness checks and cache lookups.
// UsedFallback and CanonicalIndex are resolution metadata, not identity.
func (r Ref) Key() string {
	return string(r.Kind) + ":" + r.PlatformID
}

// Resolution is a supported capture resolution.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Capability describes one device's supported capture parameters.
// FrameRates is deduplicated and sorted descending.
type Capability struct {
	Device      Ref          `json:"device"`
	FrameRates  []float64    `json:"frame_rates"`
	Resolutions []Resolution `json:"resolutions,omitempty"`
}

// CapabilitySnapshot is a point-in-time capability table for all devices of
// one kind on one platform. Replaced whole on refresh, never edited in place.
type CapabilitySnapshot struct {
	Kind       Kind         `json:"kind"`
	Devices    []Capability `json:"devices"`
	CapturedAt time.Time    `json:"captured_at"`
}

// Lookup returns the capability record for the device with the given
// platform id, or nil if the snapshot does not contain it.
func (s *CapabilitySnapshot) Lookup(platformID string) *Capability {
	if s == nil {
		return nil
	}
	for i := range s.Devices {
		if s.Devices[i].Device.PlatformID == platformID {
			return &s.Devices[i]
		}
	}
	return nil
}
